package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/render"
	"github.com/vango-dev/sprout/pkg/runtime"
	"github.com/vango-dev/sprout/pkg/vdom"
)

func texts(t vdom.Tree) []string {
	var out []string
	vdom.Walk(vdom.Resolve(t, t.Root()), func(n *vdom.VNode) {
		if n.IsText() {
			out = append(out, n.Text)
		}
	})
	return out
}

func TestCounterUpdate(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	app := newCounterApp(id.NewAllocator(), started, 0)

	assert.Equal(t, runtime.Yes(), app.Update(counterMsg{delta: 1}, nil))
	assert.Equal(t, runtime.Yes(), app.Update(counterMsg{delta: 1}, nil))
	assert.Equal(t, runtime.Yes(), app.Update(counterMsg{delta: -1}, nil))
	assert.Equal(t, 1, app.count)

	n := 40
	app.Update(counterMsg{set: &n}, nil)
	assert.Equal(t, 40, app.count)

	assert.Equal(t, runtime.No(), app.Update(counterMsg{}, nil))

	u := app.Update(counterMsg{tick: started.Add(90 * time.Second)}, nil)
	assert.Equal(t, runtime.Invalidate(app.clock.ID()), u)

	res := render.FromRoot(app.Render())
	assert.Equal(t, []string{"sprout counter", "-", "40", "+", "up 1m30s"}, texts(res))
}

func TestCounterRenderHasListeners(t *testing.T) {
	app := newCounterApp(id.NewAllocator(), time.Now(), 0)
	res := render.FromRoot(app.Render())

	require.True(t, res.Root().IsElement())
	assert.Equal(t, "main", res.Root().Tag)
	assert.False(t, res.Root().ID.IsEmpty(), "root carries the RPC target id")

	var buttons int
	vdom.Walk(res.Root(), func(n *vdom.VNode) {
		if n.IsElement() && n.Tag == "button" {
			buttons++
			assert.False(t, n.ID.IsEmpty())
			require.Len(t, n.Events, 1)
			assert.Equal(t, "click", n.Events[0].Name)
		}
	})
	assert.Equal(t, 2, buttons)
}
