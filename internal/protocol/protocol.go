// Package protocol defines the types shared between the signaling
// layers: the envelope relayed over the ledger, the event-log cursor,
// and the chat message surfaced to the UI.
package protocol

import (
	"fmt"
	"time"
)

// Envelope is the unit relayed over the ledger: who sent it, who it is
// addressed to, and the content identifier of the session description
// stored in the blob store. The description itself never touches the
// ledger.
type Envelope struct {
	From string
	To   string
	CID  string
}

// EventCursor marks a position in the ledger's event log. The zero
// value is never used directly; a nil *EventCursor means "from the
// beginning".
type EventCursor struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Message is one chat line in a channel. ID is assigned by the channel
// store at append time and is unique across all channels.
type Message struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// LocalSender is the sender label for messages written by this node.
const LocalSender = "Me"

// ShortAddr renders a ledger address in the abbreviated form shown to
// users, e.g. "0x12ab34cd...9f01".
func ShortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return fmt.Sprintf("%s...%s", addr[:8], addr[len(addr)-4:])
}
