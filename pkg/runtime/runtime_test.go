package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/sprout/pkg/archive"
	"github.com/vango-dev/sprout/pkg/dialog"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/pipe"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/service"
	"github.com/vango-dev/sprout/pkg/vdom"
)

type msg string

// testApp is a counter with hooks for individual tests.
type testApp struct {
	ids *id.Allocator

	mu      sync.Mutex
	count   int
	renders int
	log     []msg

	onUpdate func(m msg, ctx *Context[msg]) Updated
	onMount  func(ctx *Context[msg])
	extra    func(h node.Builder[msg]) []node.Node[msg]
}

func newTestApp() *testApp {
	return &testApp{ids: id.NewAllocator()}
}

func (a *testApp) Render() node.Node[msg] {
	a.mu.Lock()
	a.renders++
	count := a.count
	a.mu.Unlock()

	h := node.HTML[msg](a.ids)
	root := h.Elem("div").Child(
		h.Elem("button").On("click", func(protocol.DomEvent) msg { return "inc" }).Text("+").Build(),
		h.Elem("span").Text(strconv.Itoa(count)).Build(),
	)
	if a.extra != nil {
		root.Child(a.extra(h)...)
	}
	return root.Build()
}

func (a *testApp) Update(m msg, ctx *Context[msg]) Updated {
	a.mu.Lock()
	a.log = append(a.log, m)
	a.mu.Unlock()

	if a.onUpdate != nil {
		if u := a.onUpdate(m, ctx); !u.Empty() {
			return u
		}
	}
	switch m {
	case "inc":
		a.mu.Lock()
		a.count++
		a.mu.Unlock()
		return Yes()
	case "rerender":
		return Yes()
	}
	return No()
}

func (a *testApp) Mount(ctx *Context[msg]) {
	if a.onMount != nil {
		a.onMount(ctx)
	}
}

func (a *testApp) messages() []msg {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]msg(nil), a.log...)
}

func (a *testApp) renderCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renders
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	c := DefaultConfig()
	c.RenderDebounce = time.Millisecond
	c.RenderRetryInterval = time.Millisecond
	c.HeartbeatInterval = 0
	return c
}

type harness struct {
	t    *testing.T
	rt   *Runtime[msg]
	ctrl *Control[msg]
	fe   *pipe.Frontend
	errc chan error
}

func start(t *testing.T, app App[msg], opts ...Option) *harness {
	t.Helper()
	ch, fe := pipe.NewChannel(64)
	opts = append([]Option{WithConfig(testConfig()), WithLogger(discardLogger())}, opts...)
	rt, ctrl := New(app, ch, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{t: t, rt: rt, ctrl: ctrl, fe: fe, errc: make(chan error, 1)}
	go func() { h.errc <- rt.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-rt.Done()
		ch.Close()
	})
	return h
}

func (h *harness) next() protocol.TxMsg {
	h.t.Helper()
	select {
	case m := <-h.fe.Outbound():
		return m
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for an outbound message")
	}
	return protocol.TxMsg{}
}

func (h *harness) nextOf(ft protocol.FrameType) protocol.TxMsg {
	h.t.Helper()
	for {
		if m := h.next(); m.Type == ft {
			return m
		}
	}
}

func (h *harness) patch() []vdom.PatchItem {
	h.t.Helper()
	m := h.nextOf(protocol.FramePatch)
	items, err := protocol.DecodePatch(m.Patch)
	require.NoError(h.t, err)
	return items
}

func (h *harness) silent(d time.Duration) {
	h.t.Helper()
	select {
	case m := <-h.fe.Outbound():
		h.t.Fatalf("unexpected outbound %s", m.Type)
	case <-time.After(d):
	}
}

func (h *harness) send(m protocol.RxMsg) {
	h.t.Helper()
	require.NoError(h.t, h.fe.Send(m))
}

func (h *harness) ack() { h.send(protocol.Applied()) }

func (h *harness) click(target id.ID) {
	h.send(protocol.EventMsg(protocol.NewBaseEvent(target, "click", protocol.NoValue)))
}

func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.errc:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("runtime did not stop")
	}
	return nil
}

func findByTag(items []vdom.PatchItem, tag string) id.ID {
	var found id.ID
	for _, it := range items {
		vdom.Walk(it.Node, func(n *vdom.VNode) {
			if n.IsElement() && n.Tag == tag && found.IsEmpty() {
				found = n.ID
			}
		})
	}
	return found
}

func changedText(items []vdom.PatchItem) []string {
	var out []string
	for _, it := range items {
		if it.Op == vdom.PatchChangeText {
			out = append(out, it.Value)
		}
	}
	return out
}

func TestInitialRenderReplacesRoot(t *testing.T) {
	app := newTestApp()
	h := start(t, app)

	items := h.patch()
	require.NotEmpty(t, items)
	assert.Equal(t, vdom.PatchReplace, items[0].Op)
	assert.Equal(t, "div", items[0].Node.Tag)
	assert.False(t, findByTag(items, "button").IsEmpty())
	assert.Equal(t, 1, app.renderCount())
}

func TestClickUpdatesAndPatches(t *testing.T) {
	app := newTestApp()
	h := start(t, app)

	btn := findByTag(h.patch(), "button")
	h.ack()

	h.click(btn)
	assert.Equal(t, []string{"1"}, changedText(h.patch()))
	assert.Equal(t, []msg{"inc"}, app.messages())
}

// Every render mints new element ids; the frontend keeps using the first
// one it saw.
func TestListenerResolvesAcrossGenerations(t *testing.T) {
	app := newTestApp()
	h := start(t, app)

	btn := findByTag(h.patch(), "button")
	h.ack()

	for i := 1; i <= 3; i++ {
		h.click(btn)
		assert.Equal(t, []string{strconv.Itoa(i)}, changedText(h.patch()))
		h.ack()
	}
	assert.Equal(t, []msg{"inc", "inc", "inc"}, app.messages())
}

func TestUnchangedRenderSendsNothing(t *testing.T) {
	app := newTestApp()
	h := start(t, app)

	btn := findByTag(h.patch(), "button")
	h.ack()

	require.True(t, h.ctrl.Update("rerender"))
	require.Eventually(t, func() bool { return app.renderCount() == 2 }, time.Second, time.Millisecond)
	h.silent(20 * time.Millisecond)

	h.click(btn)
	assert.Equal(t, []string{"1"}, changedText(h.patch()))
}

func TestUpdatesCoalesceIntoOneRender(t *testing.T) {
	app := newTestApp()
	cfg := testConfig()
	cfg.RenderDebounce = 50 * time.Millisecond
	h := start(t, app, WithConfig(cfg))

	btn := findByTag(h.patch(), "button")
	h.ack()

	for i := 0; i < 5; i++ {
		h.click(btn)
	}
	assert.Equal(t, []string{"5"}, changedText(h.patch()))
	assert.Equal(t, 2, app.renderCount())
}

func TestMissingListenerDropsEvent(t *testing.T) {
	app := newTestApp()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))
	h := start(t, app, WithMetrics(metrics))

	h.patch()
	h.ack()

	h.click(id.ID(1 << 40))
	h.click(id.ID(1 << 41))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.events.WithLabelValues(eventDropped)) == 2
	}, time.Second, time.Millisecond)
	h.silent(10 * time.Millisecond)
	assert.Empty(t, app.messages())
}

func TestEventsBeforeFirstAckAreDropped(t *testing.T) {
	app := newTestApp()
	h := start(t, app)

	btn := findByTag(h.patch(), "button")
	h.click(btn)
	h.silent(20 * time.Millisecond)
	assert.Empty(t, app.messages())
}

func TestRenderWaitsForAcknowledgement(t *testing.T) {
	app := newTestApp()
	cfg := testConfig()
	cfg.MaxRenderRetries = 1000
	h := start(t, app, WithConfig(cfg))

	h.patch()
	require.True(t, h.ctrl.Update("inc"))
	h.silent(30 * time.Millisecond)

	h.ack()
	assert.Equal(t, []string{"1"}, changedText(h.patch()))
}

func TestRenderProceedsAfterMaxRetries(t *testing.T) {
	app := newTestApp()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))
	cfg := testConfig()
	cfg.MaxRenderRetries = 3
	h := start(t, app, WithConfig(cfg), WithMetrics(metrics))

	h.patch()
	require.True(t, h.ctrl.Update("inc"))
	assert.Equal(t, []string{"1"}, changedText(h.patch()))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.deferred))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.renders.WithLabelValues(renderFull)))

	// Both patches are acknowledged in order; the frame of the second one
	// routes events afterwards.
	h.ack()
	h.ack()
	require.True(t, h.ctrl.Update("inc"))
	assert.Equal(t, []string{"2"}, changedText(h.patch()))
}

func TestEmittedEventsReplayInOrder(t *testing.T) {
	app := newTestApp()
	ev := node.NewEvent[string](app.ids)
	app.extra = func(h node.Builder[msg]) []node.Node[msg] {
		return []node.Node[msg]{
			node.Subscribe(ev, func(s string) msg { return msg("got:" + s) }),
			node.Subscribe(ev, func(s string) msg { return msg("also:" + s) }),
		}
	}
	app.onUpdate = func(m msg, ctx *Context[msg]) Updated {
		switch m {
		case "fire":
			ctx.Emit(ev.Emit("a"))
			ctx.Emit(ev.Emit("b"))
		case "got:a":
			ctx.Emit(ev.Emit("c"))
		}
		return No()
	}
	h := start(t, app)
	h.patch()

	require.True(t, h.ctrl.Update("fire"))
	want := []msg{"fire", "got:a", "also:a", "got:b", "also:b", "got:c", "also:c"}
	require.Eventually(t, func() bool { return len(app.messages()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, app.messages())
}

func TestRPCDispatchesHandlerResult(t *testing.T) {
	app := newTestApp()
	app.extra = func(h node.Builder[msg]) []node.Node[msg] {
		return []node.Node[msg]{
			h.Elem("input").RPC(func(args json.RawMessage) (msg, error) {
				var s string
				if err := json.Unmarshal(args, &s); err != nil {
					return "", err
				}
				return msg("rpc:" + s), nil
			}).Build(),
		}
	}
	h := start(t, app)

	input := findByTag(h.patch(), "input")
	require.False(t, input.IsEmpty())
	h.ack()

	h.send(protocol.RPCMsg(input, json.RawMessage(`42`)))
	h.send(protocol.RPCMsg(input, json.RawMessage(`"hello"`)))
	h.send(protocol.RPCMsg(id.ID(1<<40), json.RawMessage(`"lost"`)))

	require.Eventually(t, func() bool { return len(app.messages()) >= 1 }, time.Second, time.Millisecond)
	h.silent(10 * time.Millisecond)
	assert.Equal(t, []msg{"rpc:hello"}, app.messages())
}

func TestDialogsAreShownOneAtATime(t *testing.T) {
	app := newTestApp()
	answer := func(r dialog.MessageBoxResult) msg { return msg("answer:" + string(r)) }
	app.onUpdate = func(m msg, ctx *Context[msg]) Updated {
		if m == "ask" {
			ctx.Dialog(dialog.Bind(dialog.NewYesNo("first", "?"), answer))
			ctx.Dialog(dialog.Bind(dialog.NewOkCancel("second", "?"), answer))
		}
		return No()
	}
	h := start(t, app)
	h.patch()

	require.True(t, h.ctrl.Update("ask"))
	first := h.nextOf(protocol.FrameDialogOpen)
	assert.Contains(t, string(first.Dialog), `"first"`)
	h.silent(10 * time.Millisecond)

	h.send(protocol.DialogResult(json.RawMessage(`"Yes"`)))
	second := h.nextOf(protocol.FrameDialogOpen)
	assert.Contains(t, string(second.Dialog), `"second"`)

	h.send(protocol.DialogResult(json.RawMessage(`"Cancel"`)))
	require.Eventually(t, func() bool { return len(app.messages()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []msg{"ask", "answer:Yes", "answer:Cancel"}, app.messages())
}

func TestDialogResultWithoutDialogPanics(t *testing.T) {
	ch, fe := pipe.NewChannel(16)
	defer ch.Close()
	rt, _ := New[msg](newTestApp(), ch, WithConfig(testConfig()), WithLogger(discardLogger()))

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		_ = rt.Run(context.Background())
	}()

	require.NoError(t, fe.Send(protocol.DialogResult(json.RawMessage(`"Ok"`))))
	select {
	case r := <-recovered:
		assert.NotNil(t, r)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not panic")
	}
}

func TestServiceRoundTrip(t *testing.T) {
	app := newTestApp()
	echo := service.Func[string](func(ctx context.Context, mb *service.Mailbox) <-chan string {
		out := make(chan string)
		go func() {
			defer close(out)
			mb.RunJS("probe()")
			in, err := mb.Recv(ctx)
			if err != nil {
				return
			}
			select {
			case out <- in.Data:
			case <-ctx.Done():
			}
		}()
		return out
	})
	sub := service.Subscribe(app.ids, service.Service[string](echo), func(s string) msg { return msg("svc:" + s) })
	app.onMount = func(ctx *Context[msg]) { ctx.RunService(sub) }

	h := start(t, app)

	tx := h.nextOf(protocol.FrameServiceTx)
	assert.Equal(t, sub.ID(), tx.ServiceID)
	assert.Equal(t, protocol.ServiceRunJS, tx.Service.Kind)
	assert.Equal(t, "probe()", tx.Service.Text)

	h.send(protocol.ServiceRx(sub.ID(), protocol.RxServiceMessage{Kind: protocol.ServiceData, Data: "pong"}))
	require.Eventually(t, func() bool {
		got := app.messages()
		return len(got) == 1 && got[0] == "svc:pong"
	}, time.Second, time.Millisecond)
}

func TestSpawnAndStream(t *testing.T) {
	app := newTestApp()
	app.onMount = func(ctx *Context[msg]) {
		ctx.Spawn(func(context.Context) msg { return "spawned" })
		ctx.Stream(func(_ context.Context, emit func(msg)) {
			emit("s1")
			emit("s2")
		})
	}
	start(t, app)

	require.Eventually(t, func() bool { return len(app.messages()) == 3 }, time.Second, time.Millisecond)
	got := app.messages()
	assert.ElementsMatch(t, []msg{"spawned", "s1", "s2"}, got)

	var s1, s2 int
	for i, m := range got {
		switch m {
		case "s1":
			s1 = i
		case "s2":
			s2 = i
		}
	}
	assert.Less(t, s1, s2)
}

func TestMountCommandsPrecedeFirstPatch(t *testing.T) {
	app := newTestApp()
	app.onMount = func(ctx *Context[msg]) {
		ctx.LoadCSS("body{}")
		ctx.RunJS("init()")
	}
	h := start(t, app)

	css := h.next()
	assert.Equal(t, protocol.LoadCSS("body{}"), css)
	assert.Equal(t, protocol.RunJS("init()"), h.next())
	assert.Equal(t, protocol.FramePatch, h.next().Type)
}

func TestPropagateSendsDirective(t *testing.T) {
	app := newTestApp()
	app.extra = func(h node.Builder[msg]) []node.Node[msg] {
		return []node.Node[msg]{
			h.Elem("a").OnWith("click", node.ListenOptions{PreventDefault: true}, func(protocol.DomEvent) msg {
				return "link"
			}).Build(),
		}
	}
	var pending protocol.DomEvent
	app.onUpdate = func(m msg, ctx *Context[msg]) Updated {
		if m == "link" {
			ctx.DefaultAction(pending)
		}
		return No()
	}
	h := start(t, app)

	link := findByTag(h.patch(), "a")
	h.ack()

	pending = protocol.NewBaseEvent(link, "click", protocol.NoValue)
	h.send(protocol.EventMsg(pending))

	m := h.nextOf(protocol.FramePropagate)
	assert.Equal(t, protocol.EventPropagate{Target: link, Name: "click", DefaultAction: true}, m.Propagate)
}

func TestQuitFromUpdate(t *testing.T) {
	app := newTestApp()
	app.onUpdate = func(m msg, ctx *Context[msg]) Updated {
		if m == "bye" {
			ctx.Quit()
		}
		return No()
	}
	h := start(t, app)

	require.True(t, h.ctrl.Update("bye"))
	assert.NoError(t, h.wait())
	assert.False(t, h.ctrl.Update("late"))
}

func TestControlQuit(t *testing.T) {
	h := start(t, newTestApp())
	require.True(t, h.ctrl.Quit())
	assert.NoError(t, h.wait())
	assert.False(t, h.ctrl.Quit())
}

func TestTransportCloseEndsRun(t *testing.T) {
	h := start(t, newTestApp())
	h.patch()
	h.fe.Close()
	assert.ErrorIs(t, h.wait(), ErrTransportClosed)
}

func TestContextCancelEndsRun(t *testing.T) {
	ch, _ := pipe.NewChannel(16)
	defer ch.Close()
	rt, _ := New[msg](newTestApp(), ch, WithConfig(testConfig()), WithLogger(discardLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- rt.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.ErrorIs(t, rt.Run(context.Background()), ErrAlreadyRunning)
}

func TestInvalidConfigFailsRun(t *testing.T) {
	ch, _ := pipe.NewChannel(1)
	defer ch.Close()
	cfg := testConfig()
	cfg.RenderDebounce = 0
	rt, _ := New[msg](newTestApp(), ch, WithConfig(cfg))
	assert.ErrorIs(t, rt.Run(context.Background()), ErrInvalidConfig)
}

var errBroken = errors.New("broken")

// brokenPipe fails every send.
type brokenPipe struct {
	in chan protocol.RxMsg
}

func (p brokenPipe) Split() (pipe.Sender, pipe.Receiver) { return p, p }

func (brokenPipe) Send(protocol.TxMsg) error { return errBroken }

func (p brokenPipe) Inbound() <-chan protocol.RxMsg { return p.in }

func TestSendFailureIsRuntimeError(t *testing.T) {
	rt, _ := New[msg](newTestApp(), brokenPipe{in: make(chan protocol.RxMsg)},
		WithConfig(testConfig()), WithLogger(discardLogger()), WithSessionID("s9"))

	err := rt.Run(context.Background())
	require.ErrorIs(t, err, errBroken)

	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "send Patch", rerr.Op)
	assert.Equal(t, "s9", rerr.Session)
}

func TestHeartbeat(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 5 * time.Millisecond
	h := start(t, newTestApp(), WithConfig(cfg))
	assert.Equal(t, protocol.FramePing, h.nextOf(protocol.FramePing).Type)
}

func TestRecorderReceivesSentPatches(t *testing.T) {
	app := newTestApp()
	hist := archive.NewHistory(8)
	h := start(t, app, WithRecorder(hist), WithSessionID("s1"))

	btn := findByTag(h.patch(), "button")
	h.ack()
	h.click(btn)
	h.patch()

	require.Eventually(t, func() bool { return hist.Count() == 2 }, time.Second, time.Millisecond)
	entries := hist.Entries()
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, uint64(2), entries[1].Seq)
}

type label struct {
	text    string
	renders int
	ids     *id.Allocator
}

func (l *label) Render() node.Node[msg] {
	l.renders++
	return node.HTML[msg](l.ids).Elem("p").Text(l.text).Build()
}

func (l *label) Update(m msg, _ *Context[msg]) Updated {
	l.text = string(m)
	return Yes()
}

type parentApp struct {
	ids   *id.Allocator
	child *Component[msg, *label]

	mu      sync.Mutex
	renders int
}

func (p *parentApp) Render() node.Node[msg] {
	p.mu.Lock()
	p.renders++
	p.mu.Unlock()
	return node.HTML[msg](p.ids).Elem("main").Child(p.child.Mount()).Build()
}

func (p *parentApp) Update(m msg, ctx *Context[msg]) Updated {
	return p.child.Update(m, ctx)
}

func TestInvalidatedComponentRendersAlone(t *testing.T) {
	ids := id.NewAllocator()
	app := &parentApp{ids: ids, child: NewComponent[msg](ids, &label{text: "hi", ids: ids})}
	h := start(t, app)

	items := h.patch()
	assert.Equal(t, vdom.PatchReplace, items[0].Op)
	h.ack()

	require.True(t, h.ctrl.Update("bye"))
	assert.Equal(t, []string{"bye"}, changedText(h.patch()))

	app.mu.Lock()
	assert.Equal(t, 1, app.renders)
	app.mu.Unlock()
	app.child.With(func(l *label) { assert.Equal(t, 2, l.renders) })
}
