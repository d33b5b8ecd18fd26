package vdom

import (
	"slices"

	"github.com/vango-dev/sprout/pkg/id"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement     VKind = iota // <div>, <button>, etc.
	KindText                     // Plain text node
	KindPlaceholder              // Nested component, rendered separately
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindPlaceholder:
		return "Placeholder"
	default:
		return "Unknown"
	}
}

// Attr is a single key/value attribute.
type Attr struct {
	Key   string
	Value string
}

// EventHandler describes a listener attached to an element.
type EventHandler struct {
	Name           string
	NoPropagate    bool
	PreventDefault bool
}

// VNode is the virtual DOM node.
//
// For KindPlaceholder, ID is the component identifier.
type VNode struct {
	Kind      VKind
	ID        id.ID          // Element identity; empty unless a listener or RPC is attached
	Tag       string         // Element tag name
	Namespace string         // "" when the element has no namespace
	Attrs     []Attr         // Ordered; duplicates allowed
	JSEvents  []Attr         // Declarative JS hooks (event name -> code)
	Events    []EventHandler // Listener descriptors
	Children  []*VNode
	Text      string // For KindText
}

// NewElement creates an element node.
func NewElement(tag string) *VNode {
	return &VNode{Kind: KindElement, Tag: tag}
}

// NewText creates a text node.
func NewText(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// NewPlaceholder creates a placeholder for the component with the given id.
func NewPlaceholder(component id.ID) *VNode {
	return &VNode{Kind: KindPlaceholder, ID: component}
}

// IsElement reports whether the node is an element.
func (v *VNode) IsElement() bool { return v != nil && v.Kind == KindElement }

// IsText reports whether the node is a text node.
func (v *VNode) IsText() bool { return v != nil && v.Kind == KindText }

// IsPlaceholder reports whether the node is a component placeholder.
func (v *VNode) IsPlaceholder() bool { return v != nil && v.Kind == KindPlaceholder }

// Attr returns the last value set for key.
func (v *VNode) Attr(key string) (string, bool) {
	for i := len(v.Attrs) - 1; i >= 0; i-- {
		if v.Attrs[i].Key == key {
			return v.Attrs[i].Value, true
		}
	}
	return "", false
}

// SameShape reports whether two elements can be reconciled in place:
// tag, namespace and event handler set must all match.
func (v *VNode) SameShape(other *VNode) bool {
	return v.Tag == other.Tag &&
		v.Namespace == other.Namespace &&
		slices.Equal(v.Events, other.Events)
}

// Walk calls fn for every node in the tree in pre-order.
// Placeholders are visited but not resolved.
func Walk(v *VNode, fn func(*VNode)) {
	if v == nil {
		return
	}
	fn(v)
	for _, c := range v.Children {
		Walk(c, fn)
	}
}
