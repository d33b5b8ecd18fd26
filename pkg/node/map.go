package node

import (
	"encoding/json"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
)

// Map converts a tree producing T messages into one producing M messages.
// Elements are transformed eagerly; components are wrapped so their future
// renders are mapped too.
func Map[T, M any](n Node[T], f func(T) M) Node[M] {
	switch n.kind {
	case KindElement:
		return FromElement(mapElement(n.elem, f))
	case KindText:
		return Text[M](n.text)
	case KindComponent:
		return Component[M](&mappedComponent[T, M]{inner: n.comp, f: f})
	case KindSubscription:
		inner := n.sub
		return Node[M]{kind: KindSubscription, sub: &Subscription[M]{
			Event: inner.Event,
			fn: func() (M, bool) {
				t, ok := inner.Call()
				if !ok {
					var zero M
					return zero, false
				}
				return f(t), true
			},
		}}
	case KindBlob:
		return BlobNode[M](n.blob)
	default:
		return Node[M]{kind: n.kind}
	}
}

func mapElement[T, M any](e *Element[T], f func(T) M) *Element[M] {
	out := &Element[M]{
		ID:        e.ID,
		Tag:       e.Tag,
		Namespace: e.Namespace,
		Attrs:     e.Attrs,
		JSEvents:  e.JSEvents,
	}
	for _, l := range e.Listeners {
		out.Listeners = append(out.Listeners, &Listener[M]{
			Target:         l.Target,
			Name:           l.Name,
			NoPropagate:    l.NoPropagate,
			PreventDefault: l.PreventDefault,
			fn:             func(ev protocol.DomEvent) M { return f(l.Call(ev)) },
		})
	}
	if e.RPC != nil {
		inner := e.RPC
		out.RPC = &RPC[M]{
			Target: inner.Target,
			fn: func(args json.RawMessage) (M, error) {
				t, err := inner.Call(args)
				if err != nil {
					var zero M
					return zero, err
				}
				return f(t), nil
			},
		}
	}
	if len(e.Children) > 0 {
		out.Children = make([]Node[M], len(e.Children))
		for i, c := range e.Children {
			out.Children[i] = Map(c, f)
		}
	}
	return out
}

// mappedComponent adapts a component's messages. Stacked maps form a chain
// of adapters, each applied at render time.
type mappedComponent[T, M any] struct {
	inner Mountable[T]
	f     func(T) M
}

func (c *mappedComponent[T, M]) ID() id.ID { return c.inner.ID() }

func (c *mappedComponent[T, M]) Render() Node[M] {
	return Map(c.inner.Render(), c.f)
}
