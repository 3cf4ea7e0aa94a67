// Package config holds the runtime configuration of a suichat node:
// which Sui network to talk to, the published rtc_connect package, the
// Pinata credentials for the blob store, and local tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Network is one Sui network profile, mirroring the dapp's network
// config: an RPC endpoint plus the package ID the rtc_connect module
// was published under on that network.
type Network struct {
	Name      string
	RPCURL    string
	PackageID string
}

// EventType is the fully qualified Move event type emitted by
// offer_connect, used to filter the ledger's event log.
func (n Network) EventType() string {
	return n.PackageID + "::rtc_connect::OfferConnectEvent"
}

var networks = map[string]Network{
	"localnet": {Name: "localnet", RPCURL: "http://localhost:9000"},
	"devnet":   {Name: "devnet", RPCURL: "https://fullnode.devnet.sui.io:443"},
	"testnet":  {Name: "testnet", RPCURL: "https://fullnode.testnet.sui.io:443"},
	"mainnet":  {Name: "mainnet", RPCURL: "https://fullnode.mainnet.sui.io:443"},
}

const (
	defaultNetwork      = "testnet"
	defaultGateway      = "https://gateway.pinata.cloud"
	defaultPinAPI       = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
	defaultListenAddr   = ":8089"
	defaultKeystorePath = "suichat.sqlite3"
	defaultLogLevel     = "info"

	// The dapp polls every 15s with pages of 5 events.
	defaultPollInterval = 15 * time.Second
	defaultPageSize     = 5
)

type Config struct {
	Network Network

	// Blob store (Pinata)
	PinAPIURL    string
	Gateway      string
	PinataKey    string
	PinataSecret string

	// Poller
	PollInterval time.Duration
	PageSize     int

	// Node
	ListenAddr   string
	KeystorePath string
	LogLevel     string
}

// Load reads configuration from the environment, applying defaults for
// everything except the credentials and package ID, which have no
// sensible default.
func Load() (*Config, error) {
	name := envOr("SUICHAT_NETWORK", defaultNetwork)
	network, ok := networks[name]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", name)
	}
	if url := os.Getenv("SUICHAT_RPC_URL"); url != "" {
		network.RPCURL = url
	}
	network.PackageID = os.Getenv("SUICHAT_PACKAGE_ID")

	cfg := &Config{
		Network:      network,
		PinAPIURL:    envOr("SUICHAT_PIN_API_URL", defaultPinAPI),
		Gateway:      envOr("SUICHAT_IPFS_GATEWAY", defaultGateway),
		PinataKey:    os.Getenv("SUICHAT_PINATA_KEY"),
		PinataSecret: os.Getenv("SUICHAT_PINATA_SECRET"),
		PollInterval: defaultPollInterval,
		PageSize:     defaultPageSize,
		ListenAddr:   envOr("SUICHAT_LISTEN_ADDR", defaultListenAddr),
		KeystorePath: envOr("SUICHAT_KEYSTORE", defaultKeystorePath),
		LogLevel:     envOr("SUICHAT_LOG_LEVEL", defaultLogLevel),
	}

	if v := os.Getenv("SUICHAT_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SUICHAT_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("SUICHAT_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SUICHAT_PAGE_SIZE %q", v)
		}
		cfg.PageSize = n
	}

	return cfg, nil
}

// Validate checks the fields a running node cannot do without.
func (c *Config) Validate() error {
	if c.Network.PackageID == "" {
		return fmt.Errorf("SUICHAT_PACKAGE_ID is required")
	}
	if c.PinataKey == "" || c.PinataSecret == "" {
		return fmt.Errorf("SUICHAT_PINATA_KEY and SUICHAT_PINATA_SECRET are required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
