package node

import (
	"encoding/json"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// ListenerKey identifies a listener: element plus event name.
type ListenerKey struct {
	Target id.ID
	Name   string
}

// Listener maps a DOM event on one element to a message.
type Listener[M any] struct {
	Target         id.ID
	Name           string
	NoPropagate    bool
	PreventDefault bool
	fn             func(protocol.DomEvent) M
}

// NewListener creates a listener.
func NewListener[M any](target id.ID, name string, fn func(protocol.DomEvent) M) *Listener[M] {
	return &Listener[M]{Target: target, Name: name, fn: fn}
}

// Key returns the lookup key of the listener.
func (l *Listener[M]) Key() ListenerKey {
	return ListenerKey{Target: l.Target, Name: l.Name}
}

// Handler returns the descriptor sent to the frontend.
func (l *Listener[M]) Handler() vdom.EventHandler {
	return vdom.EventHandler{Name: l.Name, NoPropagate: l.NoPropagate, PreventDefault: l.PreventDefault}
}

// Call converts the event into a message.
func (l *Listener[M]) Call(e protocol.DomEvent) M {
	return l.fn(e)
}

// RPC handles element-level remote calls carrying JSON arguments.
type RPC[M any] struct {
	Target id.ID
	fn     func(json.RawMessage) (M, error)
}

// Call decodes the arguments into a message.
func (r *RPC[M]) Call(args json.RawMessage) (M, error) {
	return r.fn(args)
}
