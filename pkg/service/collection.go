package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
)

// MessageKind discriminates Message.
type MessageKind uint8

const (
	// MessageUpdate carries an application message produced by a service.
	MessageUpdate MessageKind = iota
	// MessageTx carries a payload for the service's frontend half.
	MessageTx
	// MessageStopped reports that a service ended.
	MessageStopped
)

// Message is what a Collection reports to its owner.
type Message[M any] struct {
	Kind    MessageKind
	Service id.ID
	Msg     M                         // MessageUpdate
	Tx      protocol.TxServiceMessage // MessageTx
}

type running struct {
	mailbox *Mailbox
	cancel  context.CancelFunc
}

// Collection runs services, each on its own goroutine, and merges their
// output into one channel.
type Collection[M any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	out    chan Message[M]
	logger *slog.Logger
	wg     sync.WaitGroup

	mu       sync.Mutex
	services map[id.ID]*running
}

// NewCollection creates a collection whose services live at most as long
// as ctx.
func NewCollection[M any](ctx context.Context, buffer int, logger *slog.Logger) *Collection[M] {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Collection[M]{
		ctx:      ctx,
		cancel:   cancel,
		out:      make(chan Message[M], buffer),
		logger:   logger,
		services: make(map[id.ID]*running),
	}
}

// Messages returns the merged output of all services.
func (c *Collection[M]) Messages() <-chan Message[M] { return c.out }

// Spawn starts s. Spawning after StopAll is a no-op.
func (c *Collection[M]) Spawn(s *Subscription[M]) {
	if c.ctx.Err() != nil {
		return
	}

	sid := s.ID()
	ctx, cancel := context.WithCancel(c.ctx)
	mb := newMailbox(sid, func(tx protocol.TxServiceMessage) {
		c.emit(ctx, Message[M]{Kind: MessageTx, Service: sid, Tx: tx})
	})

	c.mu.Lock()
	if prev, ok := c.services[sid]; ok {
		prev.cancel()
	}
	r := &running{mailbox: mb, cancel: cancel}
	c.services[sid] = r
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		s.run(ctx, mb, func(m M) {
			c.emit(ctx, Message[M]{Kind: MessageUpdate, Service: sid, Msg: m})
		})

		c.mu.Lock()
		if c.services[sid] == r {
			delete(c.services, sid)
		}
		c.mu.Unlock()

		c.logger.Debug("service stopped", "service", sid)
		c.emit(c.ctx, Message[M]{Kind: MessageStopped, Service: sid})
	}()
}

// Send delivers a frontend message to a running service. It reports false
// when no such service runs.
func (c *Collection[M]) Send(sid id.ID, msg protocol.RxServiceMessage) bool {
	c.mu.Lock()
	r, ok := c.services[sid]
	c.mu.Unlock()
	if !ok {
		return false
	}
	r.mailbox.deliver(msg)
	return true
}

// Len returns the number of running services.
func (c *Collection[M]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.services)
}

// StopAll cancels every service and waits for their goroutines to return.
func (c *Collection[M]) StopAll() {
	c.cancel()
	c.wg.Wait()
}

func (c *Collection[M]) emit(ctx context.Context, m Message[M]) {
	select {
	case c.out <- m:
	case <-ctx.Done():
	}
}
