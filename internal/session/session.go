// Package session owns the per-peer connection state machine: one
// Session wraps one WebRTC peer connection and its data channel, and
// walks the role-specific status path as the handshake progresses.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/dang1412/sui-chat/internal/protocol"
)

var (
	// ErrResourceDenied reports that local media resources could not
	// be acquired; the session stays in its pre-ready state.
	ErrResourceDenied = errors.New("local media resources denied")

	// ErrNegotiation reports a failure in the underlying connection
	// primitive; the session is permanently unusable.
	ErrNegotiation = errors.New("negotiation failed")
)

// Role fixes which half of the handshake this session drives. It is
// set at creation and never changes.
type Role int

const (
	RoleOfferer Role = iota
	RoleAnswerer
)

func (r Role) String() string {
	if r == RoleAnswerer {
		return "answerer"
	}
	return "offerer"
}

// Hooks are the session's outbound edges. OnLocalDescription fires
// exactly once, only after ICE gathering completes, so a partial
// description is never relayed.
type Hooks struct {
	OnLocalDescription func(desc string)
	OnMessage          func(text string)
	OnConnected        func()
}

// statusRank orders every status along its role path so transitions
// can only ever move forward.
var statusRank = map[protocol.ConnectionStatus]int{
	protocol.StatusUninitialized:  0,
	protocol.StatusInit:           1,
	protocol.StatusOfferReceived:  1,
	protocol.StatusOffering:       2,
	protocol.StatusAnswering:      2,
	protocol.StatusOffered:        3,
	protocol.StatusAnswered:       3,
	protocol.StatusAnswerReceived: 4,
	protocol.StatusConnected:      5,
}

// Session drives the handshake with a single remote peer. It owns its
// peer connection and data channel exclusively; once failed it is not
// reused.
type Session struct {
	peer  string
	role  Role
	pc    *webrtc.PeerConnection
	hooks Hooks
	log   *logrus.Logger

	mu     sync.Mutex
	dc     *webrtc.DataChannel
	status protocol.ConnectionStatus

	readyOnce sync.Once
}

// New allocates the underlying peer connection. Answerer sessions wait
// for the remote side's data channel; offerers create their own in
// Initiate.
func New(peer string, role Role, config webrtc.Configuration, hooks Hooks, log *logrus.Logger) (*Session, error) {
	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("%w: creating peer connection: %v", ErrNegotiation, err)
	}

	s := &Session{
		peer:   peer,
		role:   role,
		pc:     pc,
		hooks:  hooks,
		log:    log,
		status: protocol.StatusUninitialized,
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debugf("Peer connection state with %s: %s", protocol.ShortAddr(peer), state)
	})

	if role == RoleAnswerer {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			s.setupDataChannel(dc)
		})
	}

	return s, nil
}

func (s *Session) Peer() string { return s.peer }
func (s *Session) Role() Role   { return s.role }

func (s *Session) Status() protocol.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// advance moves the status forward, refusing regressions and repeats.
func (s *Session) advance(to protocol.ConnectionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if statusRank[to] <= statusRank[s.status] {
		return false
	}
	s.status = to
	return true
}

// Initiate starts the offerer handshake: outbound data channel, local
// media, offer negotiation. The local description is surfaced through
// OnLocalDescription once gathering completes.
func (s *Session) Initiate() error {
	if s.role != RoleOfferer {
		return fmt.Errorf("initiate called on %s session", s.role)
	}
	s.advance(protocol.StatusInit)

	dc, err := s.pc.CreateDataChannel(s.peer+"-chat", dataChannelInit())
	if err != nil {
		return fmt.Errorf("%w: creating data channel: %v", ErrNegotiation, err)
	}
	s.setupDataChannel(dc)

	if err := s.acquireMedia(); err != nil {
		return err
	}

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("%w: creating offer: %v", ErrNegotiation, err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("%w: setting local description: %v", ErrNegotiation, err)
	}

	s.emitLocalDescriptionWhenGathered(protocol.StatusOffering)
	return nil
}

// AcceptOffer starts the answerer handshake from a received offer.
func (s *Session) AcceptOffer(remote webrtc.SessionDescription) error {
	if s.role != RoleAnswerer {
		return fmt.Errorf("acceptOffer called on %s session", s.role)
	}
	s.advance(protocol.StatusOfferReceived)

	if err := s.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("%w: setting remote offer: %v", ErrNegotiation, err)
	}

	if err := s.acquireMedia(); err != nil {
		return err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("%w: creating answer: %v", ErrNegotiation, err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("%w: setting local description: %v", ErrNegotiation, err)
	}

	s.emitLocalDescriptionWhenGathered(protocol.StatusAnswering)
	return nil
}

// MarkRelayed records that the outbound handshake message was durably
// recorded on the ledger.
func (s *Session) MarkRelayed() {
	if s.role == RoleOfferer {
		s.advance(protocol.StatusOffered)
	} else {
		s.advance(protocol.StatusAnswered)
	}
}

// ApplyRemote applies the answer to an offer this session made
// earlier.
func (s *Session) ApplyRemote(remote webrtc.SessionDescription) error {
	if s.role != RoleOfferer {
		return fmt.Errorf("applyRemote called on %s session", s.role)
	}
	if err := s.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("%w: setting remote answer: %v", ErrNegotiation, err)
	}
	s.advance(protocol.StatusAnswerReceived)
	return nil
}

// Send writes chat text to the open data channel.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	dc := s.dc
	status := s.status
	s.mu.Unlock()

	if dc == nil || status != protocol.StatusConnected {
		return fmt.Errorf("channel with %s not open", protocol.ShortAddr(s.peer))
	}
	return dc.SendText(text)
}

func (s *Session) Close() error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	if dc != nil {
		_ = dc.Close()
	}
	return s.pc.Close()
}

// acquireMedia requests the local media resource the session
// descriptions are negotiated around, mirroring the browser client's
// getUserMedia call before offer/answer creation.
func (s *Session) acquireMedia() error {
	if _, err := s.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		return fmt.Errorf("%w: %v", ErrResourceDenied, err)
	}
	return nil
}

// emitLocalDescriptionWhenGathered waits for ICE gathering to finish
// and then fires OnLocalDescription exactly once with the complete,
// candidate-bearing description.
func (s *Session) emitLocalDescriptionWhenGathered(next protocol.ConnectionStatus) {
	gathered := webrtc.GatheringCompletePromise(s.pc)
	go func() {
		<-gathered
		local := s.pc.LocalDescription()
		if local == nil {
			s.log.Errorf("Gathering finished with no local description for %s", protocol.ShortAddr(s.peer))
			return
		}
		payload, err := json.Marshal(local)
		if err != nil {
			s.log.Errorf("Encoding local description for %s: %v", protocol.ShortAddr(s.peer), err)
			return
		}
		s.readyOnce.Do(func() {
			s.advance(next)
			if s.hooks.OnLocalDescription != nil {
				s.hooks.OnLocalDescription(string(payload))
			}
		})
	}()
}

func (s *Session) setupDataChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.log.Debugf("Data channel %q open", dc.Label())
		if s.advance(protocol.StatusConnected) && s.hooks.OnConnected != nil {
			s.hooks.OnConnected()
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(string(msg.Data))
		}
	})

	dc.OnError(func(err error) {
		s.log.Errorf("Data channel error with %s: %v", protocol.ShortAddr(s.peer), err)
	})

	dc.OnClose(func() {
		s.log.Debugf("Data channel %q closed", dc.Label())
	})
}

func dataChannelInit() *webrtc.DataChannelInit {
	ordered := true
	return &webrtc.DataChannelInit{Ordered: &ordered}
}
