package runtime

import (
	"context"
	"sync"

	"github.com/vango-dev/sprout/pkg/dialog"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/service"
)

type commandKind uint8

const (
	cmdEmit commandKind = iota
	cmdLoadCSS
	cmdRunJS
	cmdPropagate
	cmdTask
	cmdService
	cmdDialog
	cmdQuit
)

// command is one request made through a Context during an update.
type command[M any] struct {
	kind      commandKind
	emission  node.Emission
	text      string
	propagate protocol.EventPropagate
	task      func(ctx context.Context, emit func(M))
	service   *service.Subscription[M]
	dialog    dialog.Binding[M]
}

// mapCommand converts a command of a nested message type into the parent's.
func mapCommand[T, M any](c command[T], fn func(T) M) command[M] {
	out := command[M]{
		kind:      c.kind,
		emission:  c.emission,
		text:      c.text,
		propagate: c.propagate,
	}
	switch c.kind {
	case cmdTask:
		task := c.task
		out.task = func(ctx context.Context, emit func(M)) {
			task(ctx, func(t T) { emit(fn(t)) })
		}
	case cmdService:
		out.service = service.Map(c.service, fn)
	case cmdDialog:
		out.dialog = dialog.MapBinding(c.dialog, fn)
	}
	return out
}

type sink[M any] interface {
	push(c command[M])
}

// queue is the root sink. The runtime drains it after every update.
type queue[M any] struct {
	mu   sync.Mutex
	cmds []command[M]
}

func (q *queue[M]) push(c command[M]) {
	q.mu.Lock()
	q.cmds = append(q.cmds, c)
	q.mu.Unlock()
}

func (q *queue[M]) drain() []command[M] {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.cmds
	q.cmds = nil
	return out
}

type mappedSink[T, M any] struct {
	parent sink[M]
	fn     func(T) M
}

func (s *mappedSink[T, M]) push(c command[T]) {
	s.parent.push(mapCommand(c, s.fn))
}

// Context is passed to Update and Mount. Its commands are carried out by
// the runtime once the call returns.
type Context[M any] struct {
	sink sink[M]
}

func newContext[M any](q *queue[M]) *Context[M] {
	return &Context[M]{sink: q}
}

// MapContext adapts ctx for a nested component whose messages are
// converted with fn. Adapters chain without walking the component tree.
func MapContext[T, M any](ctx *Context[M], fn func(T) M) *Context[T] {
	return &Context[T]{sink: &mappedSink[T, M]{parent: ctx.sink, fn: fn}}
}

// Emit publishes an emission to every subscriber of its event.
func (c *Context[M]) Emit(e node.Emission) {
	c.sink.push(command[M]{kind: cmdEmit, emission: e})
}

// LoadCSS injects a stylesheet into the frontend.
func (c *Context[M]) LoadCSS(css string) {
	c.sink.push(command[M]{kind: cmdLoadCSS, text: css})
}

// RunJS evaluates a script on the frontend.
func (c *Context[M]) RunJS(js string) {
	c.sink.push(command[M]{kind: cmdRunJS, text: js})
}

// Propagate lets a held-back event continue bubbling.
func (c *Context[M]) Propagate(e protocol.DomEvent) {
	c.propagateWith(e, true, false)
}

// DefaultAction runs the default action of a held-back event.
func (c *Context[M]) DefaultAction(e protocol.DomEvent) {
	c.propagateWith(e, false, true)
}

// PropagateAndDefault does both.
func (c *Context[M]) PropagateAndDefault(e protocol.DomEvent) {
	c.propagateWith(e, true, true)
}

func (c *Context[M]) propagateWith(e protocol.DomEvent, propagate, def bool) {
	c.sink.push(command[M]{kind: cmdPropagate, propagate: protocol.EventPropagate{
		Target:        e.Target,
		Name:          e.Name,
		Propagate:     propagate,
		DefaultAction: def,
	}})
}

// Spawn runs fn on its own goroutine and feeds its result to Update.
// ctx is cancelled when the runtime stops.
func (c *Context[M]) Spawn(fn func(ctx context.Context) M) {
	c.sink.push(command[M]{kind: cmdTask, task: func(ctx context.Context, emit func(M)) {
		emit(fn(ctx))
	}})
}

// Stream runs fn on its own goroutine; every message it emits is fed to
// Update.
func (c *Context[M]) Stream(fn func(ctx context.Context, emit func(M))) {
	c.sink.push(command[M]{kind: cmdTask, task: fn})
}

// RunService starts a service. A running service with the same id is
// replaced.
func (c *Context[M]) RunService(s *service.Subscription[M]) {
	c.sink.push(command[M]{kind: cmdService, service: s})
}

// Dialog queues a modal dialog. Dialogs are shown one at a time.
func (c *Context[M]) Dialog(b dialog.Binding[M]) {
	c.sink.push(command[M]{kind: cmdDialog, dialog: b})
}

// Quit stops the runtime after the current update.
func (c *Context[M]) Quit() {
	c.sink.push(command[M]{kind: cmdQuit})
}
