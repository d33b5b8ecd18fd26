package node

import (
	"encoding/json"
	"strings"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/protocol"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// SVGNamespace is the namespace used by SVG builders.
const SVGNamespace = "http://www.w3.org/2000/svg"

// Builder creates elements in one namespace.
type Builder[M any] struct {
	ids       *id.Allocator
	namespace string
}

// HTML returns a builder for HTML elements.
func HTML[M any](ids *id.Allocator) Builder[M] {
	return Builder[M]{ids: ids}
}

// SVG returns a builder for SVG elements.
func SVG[M any](ids *id.Allocator) Builder[M] {
	return Builder[M]{ids: ids, namespace: SVGNamespace}
}

// WithNamespace returns a builder for an arbitrary namespace.
func WithNamespace[M any](ids *id.Allocator, namespace string) Builder[M] {
	return Builder[M]{ids: ids, namespace: namespace}
}

// Elem starts an element.
func (b Builder[M]) Elem(tag string) *ElementBuilder[M] {
	return &ElementBuilder[M]{
		ids: b.ids,
		el:  &Element[M]{Tag: tag, Namespace: b.namespace},
	}
}

// Text creates a text node.
func (b Builder[M]) Text(s string) Node[M] {
	return Text[M](s)
}

// ListenOptions controls how the frontend treats a listened event.
type ListenOptions struct {
	NoPropagate    bool
	PreventDefault bool
}

// ElementBuilder assembles one element.
type ElementBuilder[M any] struct {
	ids     *id.Allocator
	el      *Element[M]
	classes []string
	htmlID  string
}

// ensureID allocates the element identifier on first use.
func (b *ElementBuilder[M]) ensureID() id.ID {
	if b.el.ID.IsEmpty() {
		b.el.ID = b.ids.Next()
	}
	return b.el.ID
}

// Attr appends an attribute.
func (b *ElementBuilder[M]) Attr(key, value string) *ElementBuilder[M] {
	b.el.Attrs = append(b.el.Attrs, vdom.Attr{Key: key, Value: value})
	return b
}

// Class adds a CSS class. Classes are joined into one attribute on Build.
func (b *ElementBuilder[M]) Class(class string) *ElementBuilder[M] {
	b.classes = append(b.classes, class)
	return b
}

// HTMLID sets the element's "id" attribute.
func (b *ElementBuilder[M]) HTMLID(v string) *ElementBuilder[M] {
	b.htmlID = v
	return b
}

// Style sets the inline style attribute.
func (b *ElementBuilder[M]) Style(css string) *ElementBuilder[M] {
	return b.Attr("style", css)
}

// JSEvent registers a JS snippet run by the frontend when the event fires.
// The snippet receives the DOM event as $event.
func (b *ElementBuilder[M]) JSEvent(name, code string) *ElementBuilder[M] {
	b.el.JSEvents = append(b.el.JSEvents, vdom.Attr{Key: name, Value: code})
	return b
}

// On attaches a listener.
func (b *ElementBuilder[M]) On(name string, fn func(protocol.DomEvent) M) *ElementBuilder[M] {
	return b.OnWith(name, ListenOptions{}, fn)
}

// OnWith attaches a listener with propagation options.
func (b *ElementBuilder[M]) OnWith(name string, opts ListenOptions, fn func(protocol.DomEvent) M) *ElementBuilder[M] {
	l := NewListener(b.ensureID(), name, fn)
	l.NoPropagate = opts.NoPropagate
	l.PreventDefault = opts.PreventDefault
	b.el.Listeners = append(b.el.Listeners, l)
	return b
}

// RPC attaches a handler for element-level remote calls.
func (b *ElementBuilder[M]) RPC(fn func(json.RawMessage) (M, error)) *ElementBuilder[M] {
	b.el.RPC = &RPC[M]{Target: b.ensureID(), fn: fn}
	return b
}

// Child appends children.
func (b *ElementBuilder[M]) Child(children ...Node[M]) *ElementBuilder[M] {
	b.el.Children = append(b.el.Children, children...)
	return b
}

// Text appends a text child.
func (b *ElementBuilder[M]) Text(s string) *ElementBuilder[M] {
	return b.Child(Text[M](s))
}

// Build finishes the element.
func (b *ElementBuilder[M]) Build() Node[M] {
	if len(b.classes) > 0 {
		b.Attr("class", strings.Join(b.classes, " "))
	}
	if b.htmlID != "" {
		b.Attr("id", b.htmlID)
	}
	return FromElement(b.el)
}
