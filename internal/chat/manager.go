package chat

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/dang1412/sui-chat/internal/protocol"
	"github.com/dang1412/sui-chat/internal/session"
	"github.com/dang1412/sui-chat/internal/sui"
)

// BlobStore is the slice of the blob client the manager needs.
type BlobStore interface {
	Store(ctx context.Context, payload string) (string, error)
	Fetch(ctx context.Context, cid string, out any) error
}

// Relay submits (recipient, cid) to the ledger and blocks until
// finality.
type Relay interface {
	Submit(ctx context.Context, recipient, cid string) (sui.TxReceipt, error)
}

type Options struct {
	// Self is the local ledger identity.
	Self     string
	Blobs    BlobStore
	Relay    Relay
	Registry *session.Registry
	Store    *Store
	RTC      webrtc.Configuration
	Logger   *logrus.Logger
}

// Manager is the signaling orchestrator: it bridges sessions to the
// blob store and ledger relay, and keeps the channel store in step
// with every session's progress.
type Manager struct {
	self     string
	blobs    BlobStore
	relay    Relay
	registry *session.Registry
	store    *Store
	rtc      webrtc.Configuration
	log      *logrus.Logger
}

func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		self:     opts.Self,
		blobs:    opts.Blobs,
		relay:    opts.Relay,
		registry: opts.Registry,
		store:    opts.Store,
		rtc:      opts.RTC,
		log:      log,
	}
}

func (m *Manager) Self() string { return m.self }

// Snapshot exposes the channel store to the UI layer.
func (m *Manager) Snapshot() Snapshot { return m.store.Snapshot() }

// Channel exposes one channel record.
func (m *Manager) Channel(peer string) (ChannelRecord, bool) { return m.store.Channel(peer) }

// SelectChannel marks the channel the UI is viewing.
func (m *Manager) SelectChannel(peer string) { m.store.SelectChannel(peer) }

// OfferConnect starts a handshake toward peer. If a session already
// exists the call is a no-op, so duplicate intent never submits a
// second transaction.
func (m *Manager) OfferConnect(peer string) error {
	sess, created, err := m.registry.GetOrCreate(peer, func() (*session.Session, error) {
		return session.New(peer, session.RoleOfferer, m.rtc, m.hooks(peer, session.RoleOfferer), m.log)
	})
	if err != nil {
		return fmt.Errorf("creating session for %s: %w", protocol.ShortAddr(peer), err)
	}
	if !created {
		return nil
	}

	m.store.AddChannel(peer)
	m.store.UpdateStatus(peer, protocol.StatusInit)
	m.log.Infof("Offering connection to %s", protocol.ShortAddr(peer))

	if err := sess.Initiate(); err != nil {
		return fmt.Errorf("initiating session for %s: %w", protocol.ShortAddr(peer), err)
	}
	return nil
}

// HandleEnvelopes processes a batch of poller-delivered envelopes in
// order, each one fully handled before the next.
func (m *Manager) HandleEnvelopes(ctx context.Context, envelopes []protocol.Envelope) {
	for _, env := range envelopes {
		if err := m.handleEnvelope(ctx, env); err != nil {
			m.log.Errorf("Handling envelope from %s: %v", protocol.ShortAddr(env.From), err)
		}
	}
}

// handleEnvelope fetches the referenced description and routes it: no
// session for the sender means a fresh inbound offer, an existing
// session means the answer to an offer this node made.
func (m *Manager) handleEnvelope(ctx context.Context, env protocol.Envelope) error {
	var desc webrtc.SessionDescription
	if err := m.blobs.Fetch(ctx, env.CID, &desc); err != nil {
		return fmt.Errorf("fetching description %s: %w", env.CID, err)
	}

	if sess, ok := m.registry.Get(env.From); ok {
		m.log.Infof("Got answer from %s", protocol.ShortAddr(env.From))
		m.store.UpdateStatus(env.From, protocol.StatusAnswerReceived)
		return sess.ApplyRemote(desc)
	}

	m.log.Infof("Got offer from %s", protocol.ShortAddr(env.From))
	m.store.AddChannel(env.From)
	m.store.UpdateStatus(env.From, protocol.StatusOfferReceived)

	sess, _, err := m.registry.GetOrCreate(env.From, func() (*session.Session, error) {
		return session.New(env.From, session.RoleAnswerer, m.rtc, m.hooks(env.From, session.RoleAnswerer), m.log)
	})
	if err != nil {
		return fmt.Errorf("creating answerer session: %w", err)
	}
	return sess.AcceptOffer(desc)
}

// SendMessage enqueues text on the peer's open data channel and
// records it locally.
func (m *Manager) SendMessage(peer, text string) error {
	sess, ok := m.registry.Get(peer)
	if !ok {
		return fmt.Errorf("no session with %s", protocol.ShortAddr(peer))
	}
	if err := sess.Send(text); err != nil {
		return err
	}
	m.store.AppendMessage(peer, text, protocol.LocalSender)
	return nil
}

// Close tears down every session.
func (m *Manager) Close() {
	m.registry.CloseAll()
}

// hooks wires a session's events back into the store and the relay
// path. The role only selects which pending/relayed statuses the
// ready signal writes.
func (m *Manager) hooks(peer string, role session.Role) session.Hooks {
	return session.Hooks{
		OnLocalDescription: func(desc string) {
			m.relayLocalDescription(context.Background(), peer, role, desc)
		},
		OnMessage: func(text string) {
			m.store.AppendMessage(peer, text, protocol.ShortAddr(peer))
		},
		OnConnected: func() {
			m.store.UpdateStatus(peer, protocol.StatusConnected)
			m.log.Infof("Connected to %s", protocol.ShortAddr(peer))
		},
	}
}

// relayLocalDescription uploads a ready local description and records
// its CID on the ledger. On failure the channel is left in its pending
// status for the UI to see; there is no silent retry.
func (m *Manager) relayLocalDescription(ctx context.Context, peer string, role session.Role, desc string) {
	pending, relayed := protocol.StatusOffering, protocol.StatusOffered
	if role == session.RoleAnswerer {
		pending, relayed = protocol.StatusAnswering, protocol.StatusAnswered
	}
	m.store.UpdateStatus(peer, pending)

	cid, err := m.blobs.Store(ctx, desc)
	if err != nil {
		m.log.Errorf("Uploading description for %s: %v", protocol.ShortAddr(peer), err)
		return
	}
	m.log.Debugf("Description for %s pinned as %s", protocol.ShortAddr(peer), cid)

	receipt, err := m.relay.Submit(ctx, peer, cid)
	if err != nil {
		m.log.Errorf("Relaying %s to %s: %v", cid, protocol.ShortAddr(peer), err)
		return
	}

	if sess, ok := m.registry.Get(peer); ok {
		sess.MarkRelayed()
	}
	m.store.UpdateStatus(peer, relayed)
	m.log.Infof("Relayed %s to %s in tx %s", cid, protocol.ShortAddr(peer), receipt.Digest)
}
