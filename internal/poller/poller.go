// Package poller turns the ledger's paged event query into a resumable
// polling loop that delivers only unseen events, oldest first, to a
// handler.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dang1412/sui-chat/internal/protocol"
)

// EventSource is the slice of the ledger client the poller needs.
type EventSource interface {
	QueryEventsSince(ctx context.Context, cursor *protocol.EventCursor, pageSize int) ([]protocol.Envelope, *protocol.EventCursor, error)
	LatestCursor(ctx context.Context) (*protocol.EventCursor, error)
}

type Options struct {
	Source EventSource
	// Self filters delivered envelopes to those addressed to this
	// identity.
	Self string
	// Handler receives each non-empty batch of inbound envelopes in
	// ascending event order.
	Handler func(envelopes []protocol.Envelope)

	Interval time.Duration
	PageSize int
	Logger   *logrus.Logger
}

type Poller struct {
	source   EventSource
	self     string
	handler  func([]protocol.Envelope)
	interval time.Duration
	pageSize int
	log      *logrus.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(opts Options) *Poller {
	interval := opts.Interval
	if interval == 0 {
		interval = 15 * time.Second
	}
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = 5
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Poller{
		source:   opts.Source,
		self:     opts.Self,
		handler:  opts.Handler,
		interval: interval,
		pageSize: pageSize,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Run polls until Stop is called or ctx is cancelled. The starting
// cursor is the newest event already in the log, so nothing historical
// is replayed. The cursor only advances when a page returns events;
// query failures are logged and retried on the next tick with the
// cursor unchanged, so no event is ever skipped.
func (p *Poller) Run(ctx context.Context) error {
	cursor, err := p.source.LatestCursor(ctx)
	if err != nil {
		return fmt.Errorf("establishing starting cursor: %w", err)
	}

	for {
		events, next, err := p.source.QueryEventsSince(ctx, cursor, p.pageSize)
		if err != nil {
			p.log.Warnf("Event query failed, retrying next cycle: %v", err)
		} else if len(events) > 0 {
			cursor = next
			inbound := make([]protocol.Envelope, 0, len(events))
			for _, env := range events {
				if env.To == p.self {
					inbound = append(inbound, env)
				}
			}
			if len(inbound) > 0 {
				p.log.Debugf("Got %d new envelope(s)", len(inbound))
				p.handler(inbound)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-time.After(p.interval):
		}
	}
}

// Stop halts the loop before its next sleep elapses. An in-flight
// query is allowed to complete.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
