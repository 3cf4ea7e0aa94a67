package protocol

import (
	"encoding/json"
	"testing"
)

func TestShortAddr(t *testing.T) {
	addr := "0x036c8ab6c5cd5da9ae7ebf8e9d39ae5b64d47b4f4058b16de37d5dcd92d0aabd"
	got := ShortAddr(addr)
	want := "0x036c8a...aabd"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestShortAddr_Short(t *testing.T) {
	if got := ShortAddr("0xabc"); got != "0xabc" {
		t.Errorf("expected short address unchanged, got %q", got)
	}
}

func TestConnectionStatus_String(t *testing.T) {
	cases := map[ConnectionStatus]string{
		StatusUninitialized:  "UNINITIALIZED",
		StatusInit:           "INIT",
		StatusOffering:       "OFFERING",
		StatusOffered:        "OFFERED",
		StatusOfferReceived:  "OFFER_RECEIVED",
		StatusAnswering:      "ANSWERING",
		StatusAnswered:       "ANSWERED",
		StatusAnswerReceived: "ANSWER_RECEIVED",
		StatusConnected:      "CONNECTED",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestConnectionStatus_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StatusOfferReceived)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"OFFER_RECEIVED"` {
		t.Errorf("expected status encoded by name, got %s", data)
	}

	var status ConnectionStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if status != StatusOfferReceived {
		t.Errorf("expected OFFER_RECEIVED back, got %s", status)
	}

	if err := json.Unmarshal([]byte(`"NOT_A_STATUS"`), &status); err == nil {
		t.Error("expected error for unknown status name")
	}
}
