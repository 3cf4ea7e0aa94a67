package ipfs_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dang1412/sui-chat/internal/ipfs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ipfs.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ipfs.NewClient(ipfs.Options{
		PinURL:  srv.URL + "/pinning/pinJSONToIPFS",
		Gateway: srv.URL,
		Key:     "key",
		Secret:  "secret",
	})
}

func TestStore(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("pinata_api_key") != "key" {
			t.Errorf("missing pinata_api_key header")
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprintln(w, `{"IpfsHash":"QmTest123"}`)
	})

	cid, err := client.Store(context.Background(), `{"type":"offer"}`)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if cid != "QmTest123" {
		t.Errorf("expected cid QmTest123, got %q", cid)
	}
	if gotBody != `{"type":"offer"}` {
		t.Errorf("expected payload uploaded verbatim, got %q", gotBody)
	}
}

func TestStore_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	})

	_, err := client.Store(context.Background(), "payload")
	if !errors.Is(err, ipfs.ErrUpload) {
		t.Errorf("expected ErrUpload, got %v", err)
	}
}

func TestStore_MissingHash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{}`)
	})

	_, err := client.Store(context.Background(), "payload")
	if !errors.Is(err, ipfs.ErrUpload) {
		t.Errorf("expected ErrUpload, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/QmTest123" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprintln(w, `{"type":"offer","sdp":"v=0"}`)
	})

	var desc struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := client.Fetch(context.Background(), "QmTest123", &desc); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if desc.SDP != "v=0" {
		t.Errorf("expected sdp 'v=0', got %q", desc.SDP)
	}
}

func TestFetch_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	var out any
	err := client.Fetch(context.Background(), "QmMissing", &out)
	if !errors.Is(err, ipfs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetch_Undecodable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "not json at all")
	})

	var out struct{}
	err := client.Fetch(context.Background(), "QmBad", &out)
	if !errors.Is(err, ipfs.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}
