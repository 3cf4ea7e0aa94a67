package sui

import (
	"context"
	"fmt"

	"github.com/dang1412/sui-chat/internal/protocol"
)

// offerConnectEvent is the parsedJson shape of an OfferConnectEvent.
// The Move event stores the CID as vector<u8>, which arrives as an
// array of numbers and must be decoded back into a UTF-8 string.
type offerConnectEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	CID  []int  `json:"cid"`
}

func (e offerConnectEvent) cidString() string {
	b := make([]byte, len(e.CID))
	for i, v := range e.CID {
		b[i] = byte(v)
	}
	return string(b)
}

type eventRecord struct {
	ID         protocol.EventCursor `json:"id"`
	ParsedJSON offerConnectEvent    `json:"parsedJson"`
}

type queryEventsResult struct {
	Data        []eventRecord         `json:"data"`
	NextCursor  *protocol.EventCursor `json:"nextCursor"`
	HasNextPage bool                  `json:"hasNextPage"`
}

func (c *Client) queryEvents(ctx context.Context, cursor *protocol.EventCursor, limit int, descending bool) (*queryEventsResult, error) {
	var result queryEventsResult
	err := c.call(ctx, "suix_queryEvents", []any{
		map[string]any{"MoveEventType": c.EventType()},
		cursor,
		limit,
		descending,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryEventsSince returns events strictly after cursor, oldest first,
// capped at pageSize, together with the cursor of the last returned
// event. When the page is empty the input cursor is handed back
// unchanged.
func (c *Client) QueryEventsSince(ctx context.Context, cursor *protocol.EventCursor, pageSize int) ([]protocol.Envelope, *protocol.EventCursor, error) {
	result, err := c.queryEvents(ctx, cursor, pageSize, false)
	if err != nil {
		return nil, cursor, fmt.Errorf("querying events: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, cursor, nil
	}

	envelopes := make([]protocol.Envelope, 0, len(result.Data))
	for _, record := range result.Data {
		envelopes = append(envelopes, protocol.Envelope{
			From: record.ParsedJSON.From,
			To:   record.ParsedJSON.To,
			CID:  record.ParsedJSON.cidString(),
		})
	}
	return envelopes, result.NextCursor, nil
}

// LatestCursor returns a cursor positioned at the most recent existing
// event, or nil when the log is empty. Pollers start here so history is
// never replayed.
func (c *Client) LatestCursor(ctx context.Context) (*protocol.EventCursor, error) {
	result, err := c.queryEvents(ctx, nil, 1, true)
	if err != nil {
		return nil, fmt.Errorf("querying latest event: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	cursor := result.Data[0].ID
	return &cursor, nil
}
