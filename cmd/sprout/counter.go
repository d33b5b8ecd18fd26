package main

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/runtime"
	"github.com/vango-dev/sprout/pkg/service"
	"github.com/vango-dev/sprout/pkg/services"
)

// counterMsg is either a delta, an absolute value or a clock tick.
type counterMsg struct {
	delta int
	set   *int
	tick  time.Time
}

// counterApp is the demo application served per connection.
type counterApp struct {
	ids   *id.Allocator
	count int
	clock *runtime.Component[counterMsg, *uptime]
	tick  time.Duration
}

func newCounterApp(ids *id.Allocator, started time.Time, tick time.Duration) *counterApp {
	return &counterApp{
		ids:   ids,
		clock: runtime.NewComponent[counterMsg](ids, &uptime{ids: ids, started: started, now: started}),
		tick:  tick,
	}
}

func (a *counterApp) Render() node.Node[counterMsg] {
	h := node.HTML[counterMsg](a.ids)
	return h.Elem("main").Class("counter").
		RPC(func(args json.RawMessage) (counterMsg, error) {
			var v struct {
				Set int `json:"set"`
			}
			if err := json.Unmarshal(args, &v); err != nil {
				return counterMsg{}, err
			}
			return counterMsg{set: &v.Set}, nil
		}).
		Child(
			h.Elem("h1").Text("sprout counter").Build(),
			h.Elem("button").On("click", func(protocol.DomEvent) counterMsg { return counterMsg{delta: -1} }).Text("-").Build(),
			h.Elem("output").Text(strconv.Itoa(a.count)).Build(),
			h.Elem("button").On("click", func(protocol.DomEvent) counterMsg { return counterMsg{delta: 1} }).Text("+").Build(),
			a.clock.Mount(),
		).
		Build()
}

func (a *counterApp) Update(m counterMsg, _ *runtime.Context[counterMsg]) runtime.Updated {
	switch {
	case !m.tick.IsZero():
		a.clock.With(func(u *uptime) { u.now = m.tick })
		return runtime.Invalidate(a.clock.ID())
	case m.set != nil:
		a.count = *m.set
		return runtime.Yes()
	case m.delta != 0:
		a.count += m.delta
		return runtime.Yes()
	}
	return runtime.No()
}

func (a *counterApp) Mount(ctx *runtime.Context[counterMsg]) {
	if a.tick <= 0 {
		return
	}
	ctx.RunService(service.Subscribe(a.ids, services.Ticker{Interval: a.tick}, func(t time.Time) counterMsg {
		return counterMsg{tick: t}
	}))
}

// uptime shows how long the session has been open.
type uptime struct {
	ids     *id.Allocator
	started time.Time
	now     time.Time
}

func (u *uptime) Render() node.Node[counterMsg] {
	d := u.now.Sub(u.started).Truncate(time.Second)
	return node.HTML[counterMsg](u.ids).Elem("p").Class("uptime").Text("up " + d.String()).Build()
}
