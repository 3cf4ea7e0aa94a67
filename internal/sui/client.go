// Package sui implements the ledger relay: submitting rtc_connect
// transactions to a Sui fullnode over JSON-RPC and reading the
// OfferConnectEvent log back out. The ledger is treated as a trusted
// oracle of ordered, append-only events; no consensus concerns leak
// into this package.
package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSubmission reports that a transaction could not be built,
	// signed or accepted by the fullnode.
	ErrSubmission = errors.New("transaction submission failed")

	// ErrFinalityTimeout reports that a submitted transaction was not
	// confirmed within the finality wait.
	ErrFinalityTimeout = errors.New("transaction finality timed out")
)

const (
	moveModule   = "rtc_connect"
	moveFunction = "offer_connect"

	defaultGasBudget       = "10000000"
	defaultFinalityTimeout = 30 * time.Second
	finalityPollEvery      = time.Second
)

type Options struct {
	RPCURL    string
	PackageID string
	Signer    *Signer

	// FinalityTimeout bounds the wait for on-chain confirmation after
	// a transaction is accepted.
	FinalityTimeout time.Duration

	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client is safe for concurrent use; it keeps no mutable state beyond
// the HTTP client.
type Client struct {
	rpcURL          string
	packageID       string
	signer          *Signer
	finalityTimeout time.Duration
	http            *http.Client
	log             *logrus.Logger
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
	timeout := opts.FinalityTimeout
	if timeout == 0 {
		timeout = defaultFinalityTimeout
	}
	return &Client{
		rpcURL:          opts.RPCURL,
		packageID:       opts.PackageID,
		signer:          opts.Signer,
		finalityTimeout: timeout,
		http:            httpClient,
		log:             log,
	}
}

// Address returns the local ledger identity.
func (c *Client) Address() string {
	return c.signer.Address()
}

// EventType returns the fully qualified event type this client queries.
func (c *Client) EventType() string {
	return c.packageID + "::" + moveModule + "::OfferConnectEvent"
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", method, res.StatusCode)
	}

	var rpcRes rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&rpcRes); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcRes.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcRes.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcRes.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}
