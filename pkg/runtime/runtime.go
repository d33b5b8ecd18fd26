// Package runtime drives an application: it renders the tree, ships patches
// through a pipe, and routes frontend input back into Update.
//
// All application state is touched from the goroutine running Run. Diffing
// and encoding happen on a worker goroutine whose result comes back as a
// message; spawned tasks and services report through channels as well.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/sprout/pkg/archive"
	"github.com/vango-dev/sprout/pkg/dialog"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/pipe"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/render"
	"github.com/vango-dev/sprout/pkg/service"
)

type controlKind uint8

const (
	controlUpdate controlKind = iota
	controlQuit
)

type controlMsg[M any] struct {
	kind controlKind
	msg  M
}

// Control sends messages to a running Runtime from other goroutines.
type Control[M any] struct {
	ch   chan controlMsg[M]
	done <-chan struct{}
}

// Update feeds msg to the application. It returns false if the runtime has
// stopped.
func (c *Control[M]) Update(msg M) bool {
	return c.send(controlMsg[M]{kind: controlUpdate, msg: msg})
}

// Quit asks the runtime to stop. It returns false if it already stopped.
func (c *Control[M]) Quit() bool {
	return c.send(controlMsg[M]{kind: controlQuit})
}

func (c *Control[M]) send(m controlMsg[M]) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- m:
		return true
	case <-c.done:
		return false
	}
}

// diffResult is what the diff worker hands back to the loop.
type diffResult[M any] struct {
	frame   *render.Frame[M]
	encoded []byte
	empty   bool
	err     error
	started time.Time
}

// Runtime runs one application against one frontend.
type Runtime[M any] struct {
	app      App[M]
	sender   pipe.Sender
	receiver pipe.Receiver
	config   *Config
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	recorder archive.Recorder
	session  string

	control chan controlMsg[M]
	results chan M
	diffs   chan diffResult[M]
	done    chan struct{}
	running atomic.Bool

	ctx      context.Context
	services *service.Collection[M]
	commands *queue[M]
	root     *Context[M]

	state    *render.State[M]
	inflight []*render.Frame[M] // sent, not yet acknowledged, oldest first
	seq      uint64

	dirty   bool
	full    bool
	invalid mapset.Set[id.ID]
	timer   *time.Timer
	timerC  <-chan time.Time
	retries int
	diffing bool

	emissions []node.Emission
	dialogs   []dialog.Binding[M]
	quit      bool
	err       error
}

// New creates a Runtime for app talking through p, and the Control to
// drive it from outside.
func New[M any](app App[M], p pipe.Pipe, opts ...Option) (*Runtime[M], *Control[M]) {
	o := buildOptions(opts)
	sender, receiver := p.Split()

	logger := o.logger.With("component", "runtime")
	if o.session != "" {
		logger = logger.With("session_id", o.session)
	}

	q := &queue[M]{}
	r := &Runtime[M]{
		app:      app,
		sender:   sender,
		receiver: receiver,
		config:   o.config,
		logger:   logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
		recorder: o.recorder,
		session:  o.session,
		control:  make(chan controlMsg[M], o.config.ResultBuffer),
		results:  make(chan M, o.config.ResultBuffer),
		diffs:    make(chan diffResult[M], 1),
		done:     make(chan struct{}),
		commands: q,
		root:     newContext(q),
		state:    render.NewState[M](),
		invalid:  mapset.NewThreadUnsafeSet[id.ID](),
	}
	return r, &Control[M]{ch: r.control, done: r.done}
}

// Done is closed when Run returns.
func (r *Runtime[M]) Done() <-chan struct{} { return r.done }

// Run mounts the application and serves it until the application quits,
// ctx is cancelled or the transport closes. It returns nil after Quit,
// ctx.Err() on cancellation, ErrTransportClosed when the frontend went
// away and a *RuntimeError if sending failed.
func (r *Runtime[M]) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(r.done)
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.ctx = ctx
	r.services = service.NewCollection[M](ctx, r.config.ResultBuffer, r.logger)
	defer r.services.StopAll()

	r.metrics.addActive(1)
	defer r.metrics.addActive(-1)
	defer func() { r.metrics.addDialogs(-len(r.dialogs)) }()
	defer r.stopTimer()

	var heartbeat <-chan time.Time
	if r.config.HeartbeatInterval > 0 {
		ticker := time.NewTicker(r.config.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	r.logger.Debug("runtime started")
	r.schedule(Yes())
	if m, ok := r.app.(Mounter[M]); ok {
		m.Mount(r.root)
		r.runCommands()
		r.replayEmissions()
	}

	for !r.quit && r.err == nil {
		select {
		case c := <-r.control:
			switch c.kind {
			case controlUpdate:
				r.dispatch(c.msg)
			case controlQuit:
				r.quit = true
			}

		case msg, ok := <-r.receiver.Inbound():
			if !ok {
				r.logger.Debug("transport closed")
				return ErrTransportClosed
			}
			r.handleInbound(msg)

		case <-r.timerC:
			r.timerC = nil
			r.renderDue()

		case res := <-r.diffs:
			r.handleDiff(res)

		case m := <-r.services.Messages():
			r.handleService(m)

		case msg := <-r.results:
			r.dispatch(msg)

		case <-heartbeat:
			r.send(protocol.Ping())

		case <-ctx.Done():
			r.logger.Debug("runtime cancelled")
			return ctx.Err()
		}
	}

	if r.err != nil {
		r.logger.Error("runtime stopped", "error", r.err)
		return r.err
	}
	r.logger.Debug("runtime quit", "stats", r.Stats().String())
	return nil
}

func (r *Runtime[M]) handleInbound(msg protocol.RxMsg) {
	switch msg.Type {
	case protocol.FrameEvent:
		r.handleEvent(msg.Event)

	case protocol.FrameApplied:
		r.handleApplied()

	case protocol.FrameServiceRx:
		if !r.services.Send(msg.ServiceID, msg.Service) {
			r.logger.Debug("message for unknown service", "service", msg.ServiceID)
		}

	case protocol.FrameDialogResult:
		r.handleDialogResult(msg.Dialog)

	case protocol.FrameRPC:
		r.handleRPC(msg.RPC)

	default:
		r.logger.Warn("unexpected inbound message", "type", msg.Type)
	}
}

func (r *Runtime[M]) handleEvent(e protocol.DomEvent) {
	l, ok := r.state.Listener(e.Target, e.Name)
	if !ok {
		r.metrics.recordEvent(eventDropped)
		r.logger.Warn("no listener for event", "target", e.Target, "event", e.Name)
		return
	}
	r.metrics.recordEvent(eventDispatched)
	r.dispatch(l.Call(e))
}

func (r *Runtime[M]) handleRPC(call protocol.RPCCall) {
	h, ok := r.state.RPC(call.Target)
	if !ok {
		r.logger.Warn("no rpc handler", "target", call.Target)
		return
	}
	msg, err := h.Call(call.Args)
	if err != nil {
		r.logger.Warn("rpc call rejected", "target", call.Target, "error", err)
		return
	}
	r.dispatch(msg)
}

func (r *Runtime[M]) handleApplied() {
	if len(r.inflight) == 0 {
		r.logger.Warn("acknowledgement without pending patch")
		return
	}
	f := r.inflight[0]
	r.inflight[0] = nil
	r.inflight = r.inflight[1:]
	r.state.Apply(f)
}

func (r *Runtime[M]) handleService(m service.Message[M]) {
	switch m.Kind {
	case service.MessageUpdate:
		r.dispatch(m.Msg)
	case service.MessageTx:
		r.send(protocol.ServiceTx(m.Service, m.Tx))
	case service.MessageStopped:
		r.logger.Debug("service finished", "service", m.Service)
	}
}

func (r *Runtime[M]) handleDialogResult(data json.RawMessage) {
	if len(r.dialogs) == 0 {
		panic("runtime: dialog result received while no dialog is open")
	}
	b := r.dialogs[0]
	r.dialogs[0] = nil
	r.dialogs = r.dialogs[1:]
	r.metrics.addDialogs(-1)

	msg, err := b.Resolve(data)
	r.openDialog()
	if err != nil {
		r.logger.Warn("dialog result rejected", "error", err)
		return
	}
	r.dispatch(msg)
}

// openDialog shows the front of the queue. Dialogs whose payload cannot
// be encoded are discarded.
func (r *Runtime[M]) openDialog() {
	for len(r.dialogs) > 0 {
		payload, err := r.dialogs[0].Payload()
		if err == nil {
			r.send(protocol.DialogOpen(payload))
			return
		}
		r.logger.Error("dialog payload", "error", err)
		r.dialogs = r.dialogs[1:]
		r.metrics.addDialogs(-1)
	}
}

// dispatch runs one update and then replays every event it emitted, in
// order, before anything else is handled.
func (r *Runtime[M]) dispatch(msg M) {
	r.update(msg)
	r.replayEmissions()
}

func (r *Runtime[M]) update(msg M) {
	r.schedule(r.app.Update(msg, r.root))
	r.runCommands()
}

func (r *Runtime[M]) replayEmissions() {
	for len(r.emissions) > 0 && !r.quit {
		e := r.emissions[0]
		r.emissions = r.emissions[1:]

		subs := r.subscriptions(e.Event)
		if len(subs) == 0 {
			r.logger.Debug("emission without subscribers", "event", e.Event)
			continue
		}
		var msgs []M
		e.Deliver(func() {
			for _, sub := range subs {
				if msg, ok := sub.Call(); ok {
					msgs = append(msgs, msg)
				}
			}
		})
		for _, msg := range msgs {
			r.update(msg)
		}
	}
}

// subscriptions come from the newest rendered frame; they are keyed by
// event id and need no translation.
func (r *Runtime[M]) subscriptions(event id.ID) []*node.Subscription[M] {
	if f := r.latest(); f != nil {
		return f.Result.Subscriptions(event)
	}
	return nil
}

func (r *Runtime[M]) runCommands() {
	for _, c := range r.commands.drain() {
		switch c.kind {
		case cmdEmit:
			r.emissions = append(r.emissions, c.emission)
		case cmdLoadCSS:
			r.send(protocol.LoadCSS(c.text))
		case cmdRunJS:
			r.send(protocol.RunJS(c.text))
		case cmdPropagate:
			r.send(protocol.PropagateMsg(c.propagate))
		case cmdTask:
			r.spawn(c.task)
		case cmdService:
			r.services.Spawn(c.service)
		case cmdDialog:
			r.dialogs = append(r.dialogs, c.dialog)
			r.metrics.addDialogs(1)
			if len(r.dialogs) == 1 {
				r.openDialog()
			}
		case cmdQuit:
			r.quit = true
		}
	}
}

func (r *Runtime[M]) spawn(task func(context.Context, func(M))) {
	ctx := r.ctx
	go task(ctx, func(m M) {
		select {
		case r.results <- m:
		case <-ctx.Done():
		}
	})
}

func (r *Runtime[M]) send(msg protocol.TxMsg) {
	if r.err != nil {
		return
	}
	if err := r.sender.Send(msg); err != nil {
		r.err = newRuntimeError(r.session, "send "+msg.Type.String(), err)
	}
}

// schedule marks the tree dirty and arms the debounce timer unless a
// render is already pending.
func (r *Runtime[M]) schedule(u Updated) {
	if u.Empty() {
		return
	}
	if u.ShouldRender {
		r.full = true
	} else {
		for _, cid := range u.Components {
			r.invalid.Add(cid)
		}
	}
	if r.dirty {
		return
	}
	r.dirty = true
	if !r.diffing {
		r.arm(r.config.RenderDebounce)
	}
}

func (r *Runtime[M]) arm(d time.Duration) {
	if r.timer == nil {
		r.timer = time.NewTimer(d)
	} else {
		r.timer.Reset(d)
	}
	r.timerC = r.timer.C
}

func (r *Runtime[M]) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timerC = nil
}

// renderDue runs when the timer fires. While patches are unacknowledged
// the render is retried a bounded number of times before it goes ahead.
func (r *Runtime[M]) renderDue() {
	if !r.dirty || r.diffing {
		return
	}
	if len(r.inflight) > 0 && r.retries < r.config.MaxRenderRetries {
		r.retries++
		r.metrics.recordDeferred()
		r.logger.Debug("render deferred", "unacked", len(r.inflight), "retry", r.retries)
		r.arm(r.config.RenderRetryInterval)
		return
	}
	r.retries = 0
	r.render()
}

// latest is the newest frame sent to the frontend, applied or not.
func (r *Runtime[M]) latest() *render.Frame[M] {
	if n := len(r.inflight); n > 0 {
		return r.inflight[n-1]
	}
	return r.state.Frame()
}

func (r *Runtime[M]) render() {
	started := time.Now()
	prev := r.latest()

	mode := renderIncremental
	if r.full || prev == nil {
		mode = renderFull
	}
	_, span := r.tracer.Start(r.ctx, "runtime.render",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("sprout.render_mode", mode)),
	)

	var result *render.Result[M]
	if mode == renderFull {
		result = render.FromRoot(r.app.Render())
	} else {
		result = render.FromFrame(prev.Result, r.invalid)
	}
	stats := result.Stats()
	span.SetAttributes(
		attribute.Int("sprout.components_rendered", stats.Rendered),
		attribute.Int("sprout.listeners", stats.Listeners),
	)
	span.End()

	r.metrics.recordRender(mode)
	r.logger.Debug("render", "mode", mode, "rendered", stats.Rendered, "components", stats.Components)

	r.dirty = false
	r.full = false
	r.invalid = mapset.NewThreadUnsafeSet[id.ID]()
	r.diffing = true

	go r.diff(prev, result, started)
}

// diff runs on a worker goroutine. r.diffs has room for the single result
// that can be outstanding, so the send never blocks.
func (r *Runtime[M]) diff(prev *render.Frame[M], next *render.Result[M], started time.Time) {
	_, span := r.tracer.Start(r.ctx, "runtime.diff")
	defer span.End()

	frame, patch := render.Diff(prev, next)
	res := diffResult[M]{frame: frame, empty: patch.IsEmpty(), started: started}
	if !res.empty {
		res.encoded, res.err = protocol.EncodePatch(patch)
	}
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("sprout.patch_items", len(patch.Items)),
			attribute.Int("sprout.patch_bytes", len(res.encoded)),
		)
		span.SetStatus(codes.Ok, "")
	}
	r.diffs <- res
}

func (r *Runtime[M]) handleDiff(res diffResult[M]) {
	r.diffing = false
	if r.dirty {
		r.arm(r.config.RenderRetryInterval)
	}

	switch {
	case res.err != nil:
		r.err = newRuntimeError(r.session, "encode patch", res.err)
		return

	case res.empty:
		// Nothing to send. The frontend ends up equivalent to the new frame
		// once it has applied whatever is still in flight.
		if n := len(r.inflight); n > 0 {
			r.inflight[n-1] = res.frame
		} else {
			r.state.Apply(res.frame)
		}
		return
	}

	r.send(protocol.PatchMsg(res.encoded))
	if r.err != nil {
		return
	}
	r.inflight = append(r.inflight, res.frame)
	r.seq++
	r.metrics.recordPatch(len(res.encoded), time.Since(res.started))
	if r.recorder != nil {
		r.recorder.Record(archive.Record{
			Session: r.session,
			Seq:     r.seq,
			Patch:   res.encoded,
			SentAt:  time.Now(),
		})
	}
}

// Stats is a snapshot for debugging. Call it only from Update, Render or
// after Run returned.
type Stats struct {
	PatchesSent uint64
	Unacked     int
	Dialogs     int
	Services    int
}

// Stats returns counters of the runtime.
func (r *Runtime[M]) Stats() Stats {
	s := Stats{PatchesSent: r.seq, Unacked: len(r.inflight), Dialogs: len(r.dialogs)}
	if r.services != nil {
		s.Services = r.services.Len()
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("patches=%d unacked=%d dialogs=%d services=%d",
		s.PatchesSent, s.Unacked, s.Dialogs, s.Services)
}
