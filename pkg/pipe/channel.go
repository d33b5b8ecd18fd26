package pipe

import (
	"sync"

	"github.com/vango-dev/sprout/pkg/protocol"
)

// Channel is an in-process Pipe. Its peer is the Frontend returned with it.
type Channel struct {
	out   chan protocol.TxMsg
	queue chan protocol.RxMsg
	in    chan protocol.RxMsg
	done  chan struct{}
	once  sync.Once
}

// NewChannel creates a connected Channel and Frontend. buffer bounds each
// direction.
func NewChannel(buffer int) (*Channel, *Frontend) {
	c := &Channel{
		out:   make(chan protocol.TxMsg, buffer),
		queue: make(chan protocol.RxMsg, buffer),
		in:    make(chan protocol.RxMsg),
		done:  make(chan struct{}),
	}
	go c.pump()
	return c, &Frontend{c: c}
}

// Split implements Pipe.
func (c *Channel) Split() (Sender, Receiver) { return c, c }

// Send implements Sender.
func (c *Channel) Send(msg protocol.TxMsg) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Inbound implements Receiver.
func (c *Channel) Inbound() <-chan protocol.RxMsg { return c.in }

// Close terminates both directions.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Channel) pump() {
	defer close(c.in)
	for {
		select {
		case m := <-c.queue:
			select {
			case c.in <- m:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

// Frontend is the test side of a Channel.
type Frontend struct {
	c *Channel
}

// Outbound delivers what the runtime sent.
func (f *Frontend) Outbound() <-chan protocol.TxMsg { return f.c.out }

// Send delivers msg to the runtime.
func (f *Frontend) Send(msg protocol.RxMsg) error {
	select {
	case <-f.c.done:
		return ErrClosed
	default:
	}
	select {
	case f.c.queue <- msg:
		return nil
	case <-f.c.done:
		return ErrClosed
	}
}

// Close terminates the pipe, which closes the runtime's Inbound channel.
func (f *Frontend) Close() { f.c.Close() }

// Done is closed once the pipe is terminated from either side.
func (f *Frontend) Done() <-chan struct{} { return f.c.done }
