// Package wspipe implements pipe.Pipe over a gorilla WebSocket connection.
//
// Every protocol message travels as one binary WebSocket message holding a
// single frame. The connection keeps itself alive with WebSocket pings and
// closes the inbound channel when the peer goes away.
package wspipe

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/sprout/pkg/pipe"
	"github.com/vango-dev/sprout/pkg/protocol"
)

// Conn is a Pipe backed by a WebSocket connection.
type Conn struct {
	conn   *websocket.Conn
	config *Config
	logger *slog.Logger

	in   chan protocol.RxMsg
	done chan struct{}

	mu        sync.Mutex // serializes writes
	closeOnce sync.Once
	closed    atomic.Bool

	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
}

var _ pipe.Pipe = (*Conn)(nil)

// New wraps an established connection and starts its read and keepalive
// loops.
func New(conn *websocket.Conn, config *Config, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	c := &Conn{
		conn:   conn,
		config: config,
		logger: logger.With("component", "wspipe", "remote", conn.RemoteAddr().String()),
		in:     make(chan protocol.RxMsg, config.InboundBuffer),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(config.MaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
	})

	go c.ReadLoop()
	go c.WriteLoop()
	return c
}

// Upgrade upgrades an HTTP request and wraps the resulting connection.
func Upgrade(w http.ResponseWriter, r *http.Request, config *Config, logger *slog.Logger) (*Conn, error) {
	config = config.withDefaults()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return New(conn, config, logger), nil
}

// Split implements pipe.Pipe.
func (c *Conn) Split() (pipe.Sender, pipe.Receiver) { return c, c }

// Inbound implements pipe.Receiver.
func (c *Conn) Inbound() <-chan protocol.RxMsg { return c.in }

// Send implements pipe.Sender.
func (c *Conn) Send(msg protocol.TxMsg) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return pipe.ErrClosed
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.logger.Error("write error", "error", err)
		go c.Close()
		return err
	}
	c.bytesSent.Add(int64(len(data)))
	return nil
}

// ReadLoop decodes inbound frames until the connection fails. It closes the
// inbound channel on return.
func (c *Conn) ReadLoop() {
	defer close(c.in)
	defer c.Close()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.bytesReceived.Add(int64(len(data)))

		msg, err := protocol.DecodeRx(data)
		if err != nil {
			c.logger.Warn("frame decode error", "error", err)
			continue
		}

		select {
		case c.in <- msg:
		case <-c.done:
			return
		}
	}
}

// WriteLoop sends keepalive pings until the connection is closed.
func (c *Conn) WriteLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			c.mu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed.Store(true)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.config.WriteTimeout))
		c.mu.Unlock()

		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Stats returns bytes sent and received so far.
func (c *Conn) Stats() (sent, received int64) {
	return c.bytesSent.Load(), c.bytesReceived.Load()
}
