package protocol

import (
	"encoding/json"
	"fmt"
)

// ConnectionStatus tracks how far a peer handshake has progressed. A
// channel moves forward along exactly one of the two role paths and
// never regresses.
type ConnectionStatus int

const (
	StatusUninitialized ConnectionStatus = iota

	// Offer side
	StatusInit
	StatusOffering
	StatusOffered
	StatusAnswerReceived

	// Answer side
	StatusOfferReceived
	StatusAnswering
	StatusAnswered

	// Both sides
	StatusConnected
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusInit:
		return "INIT"
	case StatusOffering:
		return "OFFERING"
	case StatusOffered:
		return "OFFERED"
	case StatusAnswerReceived:
		return "ANSWER_RECEIVED"
	case StatusOfferReceived:
		return "OFFER_RECEIVED"
	case StatusAnswering:
		return "ANSWERING"
	case StatusAnswered:
		return "ANSWERED"
	case StatusConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Statuses cross the UI boundary by name, matching the labels the web
// client renders.
func (s ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ConnectionStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for candidate := StatusUninitialized; candidate <= StatusConnected; candidate++ {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown connection status %q", name)
}
