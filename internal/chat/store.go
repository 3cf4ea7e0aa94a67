// Package chat holds the node's observable state (the channel store)
// and the signaling manager that keeps it synchronized with sessions,
// the blob store and the ledger.
package chat

import (
	"sync"
	"time"

	"github.com/dang1412/sui-chat/internal/protocol"
)

// ChannelRecord is the UI-visible state of one peer channel.
type ChannelRecord struct {
	Status   protocol.ConnectionStatus `json:"status"`
	Messages []protocol.Message        `json:"messages"`
}

// Snapshot is an immutable copy of the whole store. Readers never see
// a partially applied mutation.
type Snapshot struct {
	Channels map[string]ChannelRecord `json:"channels"`
	Peers    []string                 `json:"peers"`
	Selected string                   `json:"selected"`
}

// Store maps peer identities to channel records. All mutations are
// synchronous; message IDs are monotonic across every channel.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*ChannelRecord
	peers    []string
	selected string
	nextID   int
}

func NewStore() *Store {
	return &Store{channels: make(map[string]*ChannelRecord)}
}

// record returns the channel for peer, creating it with the
// uninitialized status when absent. Callers hold s.mu.
func (s *Store) record(peer string) *ChannelRecord {
	rec, ok := s.channels[peer]
	if !ok {
		rec = &ChannelRecord{Status: protocol.StatusUninitialized}
		s.channels[peer] = rec
	}
	return rec
}

func (s *Store) hasPeer(peer string) bool {
	for _, p := range s.peers {
		if p == peer {
			return true
		}
	}
	return false
}

// AddChannel registers a peer in the ordered channel list. Calling it
// again for a known peer is a no-op.
func (s *Store) AddChannel(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPeer(peer) {
		return
	}
	s.peers = append(s.peers, peer)
	s.record(peer)
}

// SelectChannel marks peer as the currently viewed channel; unknown
// peers are ignored.
func (s *Store) SelectChannel(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPeer(peer) {
		return
	}
	s.selected = peer
}

func (s *Store) UpdateStatus(peer string, status protocol.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(peer).Status = status
}

// AppendMessage appends a message to peer's channel, assigning the
// next store-wide ID and stamping the capture time. The assigned
// message is returned.
func (s *Store) AppendMessage(peer, text, sender string) protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := protocol.Message{
		ID:        s.nextID,
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
	s.nextID++

	rec := s.record(peer)
	rec.Messages = append(rec.Messages, msg)
	return msg
}

// Channel returns a copy of one channel record.
func (s *Store) Channel(peer string) (ChannelRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.channels[peer]
	if !ok {
		return ChannelRecord{}, false
	}
	return copyRecord(rec), true
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Channels: make(map[string]ChannelRecord, len(s.channels)),
		Peers:    append([]string(nil), s.peers...),
		Selected: s.selected,
	}
	for peer, rec := range s.channels {
		snap.Channels[peer] = copyRecord(rec)
	}
	return snap
}

func copyRecord(rec *ChannelRecord) ChannelRecord {
	return ChannelRecord{
		Status:   rec.Status,
		Messages: append([]protocol.Message(nil), rec.Messages...),
	}
}
