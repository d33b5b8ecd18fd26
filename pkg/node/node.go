package node

import (
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement      Kind = iota // Element with attributes, listeners and children
	KindText                     // Plain text
	KindComponent                // Nested component
	KindSubscription             // Subscription to an Event; renders nothing
	KindBlob                     // Binary payload; renders nothing
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComponent:
		return "Component"
	case KindSubscription:
		return "Subscription"
	case KindBlob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Mountable is a component that can be placed in a tree. Render is called
// by the collector whenever the component has to be re-rendered.
type Mountable[M any] interface {
	ID() id.ID
	Render() Node[M]
}

// Node is one node of the application tree.
type Node[M any] struct {
	kind Kind
	elem *Element[M]
	text string
	comp Mountable[M]
	sub  *Subscription[M]
	blob *vdom.Blob
}

// Element is the payload of a KindElement node.
type Element[M any] struct {
	ID        id.ID
	Tag       string
	Namespace string
	Attrs     []vdom.Attr
	JSEvents  []vdom.Attr
	Listeners []*Listener[M]
	RPC       *RPC[M]
	Children  []Node[M]
}

// Text creates a text node.
func Text[M any](s string) Node[M] {
	return Node[M]{kind: KindText, text: s}
}

// FromElement wraps an element.
func FromElement[M any](e *Element[M]) Node[M] {
	return Node[M]{kind: KindElement, elem: e}
}

// Component wraps a component.
func Component[M any](c Mountable[M]) Node[M] {
	return Node[M]{kind: KindComponent, comp: c}
}

// BlobNode places a blob in the tree.
func BlobNode[M any](b *vdom.Blob) Node[M] {
	return Node[M]{kind: KindBlob, blob: b}
}

// Kind returns the node kind.
func (n Node[M]) Kind() Kind { return n.kind }

// Element returns the element payload, or nil.
func (n Node[M]) Element() *Element[M] { return n.elem }

// Text returns the text payload.
func (n Node[M]) Text() string { return n.text }

// Component returns the component payload, or nil.
func (n Node[M]) Component() Mountable[M] { return n.comp }

// Subscription returns the subscription payload, or nil.
func (n Node[M]) Subscription() *Subscription[M] { return n.sub }

// Blob returns the blob payload, or nil.
func (n Node[M]) Blob() *vdom.Blob { return n.blob }
