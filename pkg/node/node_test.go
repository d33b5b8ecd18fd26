package node

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/vdom"
)

type msg struct{ name string }

func TestBuilderElement(t *testing.T) {
	ids := id.NewAllocator()
	n := HTML[msg](ids).Elem("div").
		Class("a").
		Class("b").
		HTMLID("main").
		Attr("title", "t").
		JSEvent("click", "console.log($event)").
		Text("hello").
		Build()

	require.Equal(t, KindElement, n.Kind())
	e := n.Element()
	assert.Equal(t, "div", e.Tag)
	assert.True(t, e.ID.IsEmpty(), "element without listeners must not get an id")
	assert.Equal(t, []vdom.Attr{
		{Key: "title", Value: "t"},
		{Key: "class", Value: "a b"},
		{Key: "id", Value: "main"},
	}, e.Attrs)
	assert.Equal(t, []vdom.Attr{{Key: "click", Value: "console.log($event)"}}, e.JSEvents)
	require.Len(t, e.Children, 1)
	assert.Equal(t, "hello", e.Children[0].Text())
}

func TestBuilderListenerAllocatesID(t *testing.T) {
	ids := id.NewAllocator()
	n := HTML[msg](ids).Elem("button").
		On("click", func(protocol.DomEvent) msg { return msg{"click"} }).
		OnWith("keydown", ListenOptions{PreventDefault: true}, func(protocol.DomEvent) msg { return msg{"key"} }).
		Build()

	e := n.Element()
	require.False(t, e.ID.IsEmpty())
	require.Len(t, e.Listeners, 2)
	for _, l := range e.Listeners {
		assert.Equal(t, e.ID, l.Target, "listeners share the element id")
	}
	assert.Equal(t, vdom.EventHandler{Name: "keydown", PreventDefault: true}, e.Listeners[1].Handler())
	assert.Equal(t, msg{"click"}, e.Listeners[0].Call(protocol.NewBaseEvent(e.ID, "click", protocol.NoValue)))
}

func TestSVGNamespace(t *testing.T) {
	n := SVG[msg](id.NewAllocator()).Elem("circle").Build()
	assert.Equal(t, SVGNamespace, n.Element().Namespace)
}

func TestSubscribe(t *testing.T) {
	ids := id.NewAllocator()
	ev := NewEvent[int](ids)
	n := Subscribe(ev, func(v int) msg { return msg{name: "got"} })

	require.Equal(t, KindSubscription, n.Kind())
	sub := n.Subscription()
	assert.Equal(t, ev.ID(), sub.Event)

	var (
		m  msg
		ok bool
	)
	ev.Emit(3).Deliver(func() { m, ok = sub.Call() })
	assert.True(t, ok)
	assert.Equal(t, msg{"got"}, m)

	_, ok = sub.Call()
	assert.False(t, ok, "nothing is delivered outside Deliver")
}

func TestSubscriptionIgnoresOtherEvents(t *testing.T) {
	ids := id.NewAllocator()
	ints := NewEvent[int](ids)
	strs := NewEvent[string](ids)
	sub := Subscribe(ints, func(v int) int { return v * 2 }).Subscription()

	var ok bool
	strs.Emit("x").Deliver(func() { _, ok = sub.Call() })
	assert.False(t, ok)

	var got int
	ints.Emit(21).Deliver(func() { got, ok = sub.Call() })
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestZeroEventDeliversNothing(t *testing.T) {
	var ev Event[int]
	sub := Subscribe(ev, func(v int) int { return v }).Subscription()

	called := false
	ev.Emit(1).Deliver(func() { called = true })
	assert.False(t, called)

	_, ok := sub.Call()
	assert.False(t, ok)
}

func TestBlobBuilderHashesData(t *testing.T) {
	ids := id.NewAllocator()
	data := []byte("payload")
	b := NewBlob(ids).MimeType("text/plain").Data(data).Build()

	assert.Equal(t, xxhash.Sum64(data), b.Hash)
	assert.Equal(t, "text/plain", b.MimeType)
	assert.False(t, b.ID.IsEmpty())

	explicit := NewBlob(ids).ID(b.ID).Data(data).Hash(7).Build()
	assert.Equal(t, uint64(7), explicit.Hash)
	assert.Equal(t, b.ID, explicit.ID)
}

type counter struct {
	cid     id.ID
	renders int
	ids     *id.Allocator
}

func (c *counter) ID() id.ID { return c.cid }

func (c *counter) Render() Node[int] {
	c.renders++
	return HTML[int](c.ids).Elem("span").
		On("click", func(protocol.DomEvent) int { return 1 }).
		Build()
}

func TestMapTransformsTree(t *testing.T) {
	ids := id.NewAllocator()
	comp := &counter{cid: ids.Next(), ids: ids}
	ev := NewEvent[string](ids)

	tree := HTML[int](ids).Elem("div").
		On("input", func(protocol.DomEvent) int { return 5 }).
		RPC(func(args json.RawMessage) (int, error) {
			if string(args) == "bad" {
				return 0, errors.New("bad args")
			}
			return 9, nil
		}).
		Child(
			Component[int](comp),
			Subscribe(ev, func(s string) int { return len(s) }),
			BlobNode[int](NewBlob(ids).Data([]byte{1}).Build()),
			Text[int]("t"),
		).
		Build()

	mapped := Map(tree, func(i int) string { return string(rune('a' + i)) })

	e := mapped.Element()
	require.Len(t, e.Listeners, 1)
	assert.Equal(t, "f", e.Listeners[0].Call(protocol.DomEvent{}))

	out, err := e.RPC.Call(json.RawMessage("ok"))
	require.NoError(t, err)
	assert.Equal(t, "j", out)
	_, err = e.RPC.Call(json.RawMessage("bad"))
	assert.Error(t, err)

	require.Len(t, e.Children, 4)
	mc := e.Children[0].Component()
	assert.Equal(t, comp.ID(), mc.ID())
	assert.Equal(t, 0, comp.renders, "mapping must not render components")
	rendered := mc.Render()
	assert.Equal(t, 1, comp.renders)
	assert.Equal(t, "b", rendered.Element().Listeners[0].Call(protocol.DomEvent{}))

	var (
		m  string
		ok bool
	)
	ev.Emit("abc").Deliver(func() { m, ok = e.Children[1].Subscription().Call() })
	assert.True(t, ok)
	assert.Equal(t, "d", m)

	assert.Equal(t, KindBlob, e.Children[2].Kind())
	assert.Equal(t, "t", e.Children[3].Text())
}
