// Package pipe defines the transport between a runtime and its frontend.
//
// A Pipe splits into a Sender for outbound messages and a Receiver whose
// Inbound channel delivers frontend messages in order and is closed when
// the transport terminates. Channel is an in-process pipe for tests and
// embedded hosts; package wspipe carries the same messages over a
// WebSocket.
package pipe

import (
	"errors"

	"github.com/vango-dev/sprout/pkg/protocol"
)

// ErrClosed is returned when sending on a terminated pipe.
var ErrClosed = errors.New("pipe: closed")

// Sender delivers messages to the frontend.
type Sender interface {
	Send(msg protocol.TxMsg) error
}

// Receiver delivers messages from the frontend.
type Receiver interface {
	// Inbound is closed when the transport terminates.
	Inbound() <-chan protocol.RxMsg
}

// Pipe is a bidirectional transport.
type Pipe interface {
	Split() (Sender, Receiver)
}
