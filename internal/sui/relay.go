package sui

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// TxReceipt identifies a confirmed transaction.
type TxReceipt struct {
	Digest string
}

type moveCallResult struct {
	TxBytes string `json:"txBytes"`
}

type executeResult struct {
	Digest string `json:"digest"`
}

// Submit records (recipient, cid) on the ledger by calling
// rtc_connect::offer_connect, then blocks until the fullnode confirms
// the transaction. The caller's goroutine waits; nothing else is held
// up.
func (c *Client) Submit(ctx context.Context, recipient, cid string) (TxReceipt, error) {
	var built moveCallResult
	err := c.call(ctx, "unsafe_moveCall", []any{
		c.signer.Address(),
		c.packageID,
		moveModule,
		moveFunction,
		[]string{},
		[]any{recipient, cid},
		nil, // gas object, chosen by the node
		defaultGasBudget,
	}, &built)
	if err != nil {
		return TxReceipt{}, fmt.Errorf("%w: building move call: %v", ErrSubmission, err)
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil {
		return TxReceipt{}, fmt.Errorf("%w: undecodable tx bytes: %v", ErrSubmission, err)
	}
	signature := c.signer.SignTransaction(txBytes)

	var executed executeResult
	err = c.call(ctx, "sui_executeTransactionBlock", []any{
		built.TxBytes,
		[]string{signature},
		map[string]any{"showEffects": true},
		"WaitForLocalExecution",
	}, &executed)
	if err != nil {
		return TxReceipt{}, fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	c.log.Debugf("Transaction submitted: %s", executed.Digest)

	if err := c.waitForTransaction(ctx, executed.Digest); err != nil {
		return TxReceipt{}, err
	}

	c.log.Infof("Transaction confirmed: %s", executed.Digest)
	return TxReceipt{Digest: executed.Digest}, nil
}

// waitForTransaction polls until the digest is visible on the node,
// bounded by the configured finality timeout.
func (c *Client) waitForTransaction(ctx context.Context, digest string) error {
	deadline := time.NewTimer(c.finalityTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(finalityPollEvery)
	defer tick.Stop()

	for {
		var tx struct {
			Digest string `json:"digest"`
		}
		err := c.call(ctx, "sui_getTransactionBlock", []any{digest, map[string]any{}}, &tx)
		if err == nil && tx.Digest == digest {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrFinalityTimeout, digest, ctx.Err())
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrFinalityTimeout, digest)
		case <-tick.C:
		}
	}
}
