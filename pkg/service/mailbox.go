package service

import (
	"context"
	"sync"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
)

// Mailbox connects a running service to its frontend half. Outbound calls
// never block the caller beyond the owning collection's shutdown; inbound
// messages queue without bound until the service receives them.
type Mailbox struct {
	id   id.ID
	send func(protocol.TxServiceMessage)

	mu    sync.Mutex
	queue []protocol.RxServiceMessage
	ready chan struct{}
}

func newMailbox(sid id.ID, send func(protocol.TxServiceMessage)) *Mailbox {
	return &Mailbox{id: sid, send: send, ready: make(chan struct{}, 1)}
}

// ID returns the service id the frontend addresses.
func (m *Mailbox) ID() id.ID { return m.id }

// RunJS evaluates code in the service's frontend context.
func (m *Mailbox) RunJS(code string) {
	m.send(protocol.TxServiceMessage{Kind: protocol.ServiceRunJS, Text: code})
}

// LoadCSS loads a stylesheet on the frontend.
func (m *Mailbox) LoadCSS(css string) {
	m.send(protocol.TxServiceMessage{Kind: protocol.ServiceLoadCSS, Text: css})
}

// Send passes opaque data to the frontend half.
func (m *Mailbox) Send(data []byte) {
	m.send(protocol.TxServiceMessage{Kind: protocol.ServiceFrontend, Data: data})
}

// Recv waits for the next message from the frontend half.
func (m *Mailbox) Recv(ctx context.Context) (protocol.RxServiceMessage, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			return protocol.RxServiceMessage{}, ctx.Err()
		}
	}
}

func (m *Mailbox) deliver(msg protocol.RxServiceMessage) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}
