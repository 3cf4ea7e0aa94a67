package sui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dang1412/sui-chat/internal/protocol"
)

type rpcHandler func(params []json.RawMessage) (any, *rpcError)

// newRPCServer serves canned JSON-RPC methods for the client under test.
func newRPCServer(t *testing.T, handlers map[string]rpcHandler) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("undecodable rpc request: %v", err)
			return
		}
		handler, ok := handlers[req.Method]
		if !ok {
			t.Errorf("unexpected rpc method %q", req.Method)
			return
		}
		result, rpcErr := handler(req.Params)
		res := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			res["error"] = rpcErr
		} else {
			res["result"] = result
		}
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(srv.Close)

	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner failed: %v", err)
	}
	return NewClient(Options{
		RPCURL:          srv.URL,
		PackageID:       "0xpkg",
		Signer:          signer,
		FinalityTimeout: 2 * time.Second,
	})
}

func eventJSON(digest, seq, from, to, cid string) map[string]any {
	cidBytes := make([]int, len(cid))
	for i := range cid {
		cidBytes[i] = int(cid[i])
	}
	return map[string]any{
		"id":         map[string]string{"txDigest": digest, "eventSeq": seq},
		"parsedJson": map[string]any{"from": from, "to": to, "cid": cidBytes},
	}
}

func TestQueryEventsSince(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"suix_queryEvents": func(params []json.RawMessage) (any, *rpcError) {
			var filter map[string]string
			_ = json.Unmarshal(params[0], &filter)
			if filter["MoveEventType"] != "0xpkg::rtc_connect::OfferConnectEvent" {
				return nil, &rpcError{Code: -1, Message: "wrong event type"}
			}
			return map[string]any{
				"data": []any{
					eventJSON("tx1", "0", "0xalice", "0xbob", "QmOffer"),
					eventJSON("tx2", "0", "0xcarol", "0xbob", "QmOther"),
				},
				"nextCursor":  map[string]string{"txDigest": "tx2", "eventSeq": "0"},
				"hasNextPage": false,
			}, nil
		},
	})

	events, next, err := client.QueryEventsSince(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("QueryEventsSince failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].From != "0xalice" || events[0].To != "0xbob" {
		t.Errorf("unexpected first envelope: %+v", events[0])
	}
	if events[0].CID != "QmOffer" {
		t.Errorf("expected cid decoded as UTF-8, got %q", events[0].CID)
	}
	if next == nil || next.TxDigest != "tx2" {
		t.Errorf("expected cursor advanced to tx2, got %+v", next)
	}
}

func TestQueryEventsSince_EmptyPageKeepsCursor(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"suix_queryEvents": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]any{"data": []any{}, "nextCursor": nil, "hasNextPage": false}, nil
		},
	})

	cursor := &protocol.EventCursor{TxDigest: "tx9", EventSeq: "1"}
	events, next, err := client.QueryEventsSince(context.Background(), cursor, 5)
	if err != nil {
		t.Fatalf("QueryEventsSince failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if next != cursor {
		t.Errorf("expected cursor unchanged on empty page, got %+v", next)
	}
}

func TestLatestCursor(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"suix_queryEvents": func(params []json.RawMessage) (any, *rpcError) {
			var descending bool
			_ = json.Unmarshal(params[3], &descending)
			if !descending {
				return nil, &rpcError{Code: -1, Message: "expected descending query"}
			}
			return map[string]any{
				"data":        []any{eventJSON("tx7", "2", "0xalice", "0xbob", "QmX")},
				"nextCursor":  map[string]string{"txDigest": "tx7", "eventSeq": "2"},
				"hasNextPage": true,
			}, nil
		},
	})

	cursor, err := client.LatestCursor(context.Background())
	if err != nil {
		t.Fatalf("LatestCursor failed: %v", err)
	}
	if cursor == nil || cursor.TxDigest != "tx7" || cursor.EventSeq != "2" {
		t.Errorf("unexpected cursor %+v", cursor)
	}
}

func TestLatestCursor_EmptyLog(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"suix_queryEvents": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]any{"data": []any{}, "nextCursor": nil, "hasNextPage": false}, nil
		},
	})

	cursor, err := client.LatestCursor(context.Background())
	if err != nil {
		t.Fatalf("LatestCursor failed: %v", err)
	}
	if cursor != nil {
		t.Errorf("expected nil cursor for empty log, got %+v", cursor)
	}
}

func TestSubmit(t *testing.T) {
	txBytes := "dHJhbnNhY3Rpb24=" // "transaction"
	client := newRPCServer(t, map[string]rpcHandler{
		"unsafe_moveCall": func(params []json.RawMessage) (any, *rpcError) {
			var module, function string
			_ = json.Unmarshal(params[2], &module)
			_ = json.Unmarshal(params[3], &function)
			if module != "rtc_connect" || function != "offer_connect" {
				return nil, &rpcError{Code: -1, Message: fmt.Sprintf("wrong target %s::%s", module, function)}
			}
			var args []string
			_ = json.Unmarshal(params[5], &args)
			if len(args) != 2 || args[0] != "0xbob" || args[1] != "QmOffer" {
				return nil, &rpcError{Code: -1, Message: "wrong call arguments"}
			}
			return map[string]string{"txBytes": txBytes}, nil
		},
		"sui_executeTransactionBlock": func(params []json.RawMessage) (any, *rpcError) {
			var sigs []string
			_ = json.Unmarshal(params[1], &sigs)
			if len(sigs) != 1 || sigs[0] == "" {
				return nil, &rpcError{Code: -1, Message: "missing signature"}
			}
			return map[string]string{"digest": "Digest123"}, nil
		},
		"sui_getTransactionBlock": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]string{"digest": "Digest123"}, nil
		},
	})

	receipt, err := client.Submit(context.Background(), "0xbob", "QmOffer")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if receipt.Digest != "Digest123" {
		t.Errorf("expected digest Digest123, got %q", receipt.Digest)
	}
}

func TestSubmit_Rejected(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"unsafe_moveCall": func(params []json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32000, Message: "insufficient gas"}
		},
	})

	_, err := client.Submit(context.Background(), "0xbob", "QmOffer")
	if !errors.Is(err, ErrSubmission) {
		t.Errorf("expected ErrSubmission, got %v", err)
	}
}

func TestSubmit_FinalityTimeout(t *testing.T) {
	client := newRPCServer(t, map[string]rpcHandler{
		"unsafe_moveCall": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]string{"txBytes": "dHg="}, nil
		},
		"sui_executeTransactionBlock": func(params []json.RawMessage) (any, *rpcError) {
			return map[string]string{"digest": "DigestLost"}, nil
		},
		"sui_getTransactionBlock": func(params []json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: -32602, Message: "transaction not found"}
		},
	})
	client.finalityTimeout = 50 * time.Millisecond

	_, err := client.Submit(context.Background(), "0xbob", "QmOffer")
	if !errors.Is(err, ErrFinalityTimeout) {
		t.Errorf("expected ErrFinalityTimeout, got %v", err)
	}
}
