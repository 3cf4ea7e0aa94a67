// Package ipfs implements the blob store half of the rendezvous: a
// Pinata pinning client that uploads session descriptions and fetches
// them back through a public gateway. Session descriptions are too
// large for a ledger transaction, so only their content identifier is
// ever relayed on-chain.
package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUpload reports a failed pin: transport error, auth rejection
	// or quota failure. Callers decide whether to retry.
	ErrUpload = errors.New("blob upload failed")

	// ErrNotFound reports that the gateway has no content for the CID.
	ErrNotFound = errors.New("blob not found")

	// ErrDecode reports that the stored payload could not be parsed
	// into the caller's type.
	ErrDecode = errors.New("blob payload undecodable")
)

type Options struct {
	// PinURL is the pinning API endpoint (pinJSONToIPFS).
	PinURL string
	// Gateway is the base URL blobs are fetched from.
	Gateway string
	// Key and Secret authenticate against the pinning API.
	Key    string
	Secret string

	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client talks to the pinning API and gateway. It holds no mutable
// state; concurrent calls are independent.
type Client struct {
	pinURL  string
	gateway string
	key     string
	secret  string
	http    *http.Client
	log     *logrus.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		pinURL:  opts.PinURL,
		gateway: strings.TrimRight(opts.Gateway, "/"),
		key:     opts.Key,
		secret:  opts.Secret,
		http:    httpClient,
		log:     log,
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Store pins a payload and returns its content identifier. No retry is
// performed here.
func (c *Client) Store(ctx context.Context, payload string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pinURL, strings.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("pinata_api_key", c.key)
	req.Header.Set("pinata_secret_api_key", c.secret)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpload, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var pin pinResponse
	if err := json.NewDecoder(res.Body).Decode(&pin); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if pin.IpfsHash == "" {
		return "", fmt.Errorf("%w: response missing IpfsHash", ErrUpload)
	}

	c.log.Debugf("Pinned %d bytes as %s", len(payload), pin.IpfsHash)
	return pin.IpfsHash, nil
}

// Fetch retrieves a blob through the gateway and JSON-decodes it into
// out.
func (c *Client) Fetch(ctx context.Context, cid string, out any) error {
	url := fmt.Sprintf("%s/ipfs/%s", c.gateway, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building fetch request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", cid, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, cid)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("fetching %s: status %d", cid, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, cid, err)
	}
	return nil
}
