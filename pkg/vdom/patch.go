package vdom

import (
	"fmt"

	"github.com/vango-dev/sprout/pkg/id"
)

// PatchOp is the type of patch operation. The values are the wire tags.
type PatchOp uint8

const (
	PatchAppendSibling    PatchOp = 1  // Append a node after the cursor's last sibling
	PatchReplace          PatchOp = 3  // Replace the node at the cursor
	PatchChangeText       PatchOp = 4  // Replace text content
	PatchAscend           PatchOp = 5  // Move cursor to parent
	PatchDescend          PatchOp = 6  // Move cursor to first child
	PatchRemoveChildren   PatchOp = 7  // Remove all children of the cursor
	PatchTruncateSiblings PatchOp = 8  // Remove all siblings after the cursor
	PatchNextNode         PatchOp = 9  // Move cursor to next sibling
	PatchRemoveAttribute  PatchOp = 10 // Remove attribute
	PatchAddAttribute     PatchOp = 11 // Add attribute
	PatchReplaceAttribute PatchOp = 12 // Change attribute value
	PatchAddBlob          PatchOp = 13 // Register a binary blob
	PatchRemoveBlob       PatchOp = 14 // Drop a binary blob
	PatchRemoveJSEvent    PatchOp = 15 // Remove a JS hook
	PatchAddJSEvent       PatchOp = 16 // Add a JS hook
	PatchReplaceJSEvent   PatchOp = 17 // Change a JS hook
	PatchAddChildren      PatchOp = 18 // Populate an empty element
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchAppendSibling:
		return "AppendSibling"
	case PatchReplace:
		return "Replace"
	case PatchChangeText:
		return "ChangeText"
	case PatchAscend:
		return "Ascend"
	case PatchDescend:
		return "Descend"
	case PatchRemoveChildren:
		return "RemoveChildren"
	case PatchTruncateSiblings:
		return "TruncateSiblings"
	case PatchNextNode:
		return "NextNode"
	case PatchRemoveAttribute:
		return "RemoveAttribute"
	case PatchAddAttribute:
		return "AddAttribute"
	case PatchReplaceAttribute:
		return "ReplaceAttribute"
	case PatchAddBlob:
		return "AddBlob"
	case PatchRemoveBlob:
		return "RemoveBlob"
	case PatchRemoveJSEvent:
		return "RemoveJSEvent"
	case PatchAddJSEvent:
		return "AddJSEvent"
	case PatchReplaceJSEvent:
		return "ReplaceJSEvent"
	case PatchAddChildren:
		return "AddChildren"
	default:
		return fmt.Sprintf("PatchOp(%d)", uint8(op))
	}
}

// IsMove reports whether the op only moves the cursor.
func (op PatchOp) IsMove() bool {
	return op == PatchAscend || op == PatchDescend || op == PatchNextNode
}

// Blob is a binary payload delivered to the frontend out of band.
type Blob struct {
	ID       id.ID
	Hash     uint64
	MimeType string
	Data     []byte
}

// PatchItem is a single cursor-relative edit.
type PatchItem struct {
	Op    PatchOp
	Node  *VNode   // AppendSibling, Replace
	Nodes []*VNode // AddChildren
	Key   string   // Attribute and JS hook ops
	Value string   // Attribute and JS hook ops; new text for ChangeText
	Blob  *Blob    // AddBlob
	ID    id.ID    // RemoveBlob
}

// String returns a short description of the item.
func (p PatchItem) String() string {
	switch p.Op {
	case PatchChangeText:
		return fmt.Sprintf("%s(%q)", p.Op, p.Value)
	case PatchAddAttribute, PatchReplaceAttribute, PatchAddJSEvent, PatchReplaceJSEvent:
		return fmt.Sprintf("%s(%s=%q)", p.Op, p.Key, p.Value)
	case PatchRemoveAttribute, PatchRemoveJSEvent:
		return fmt.Sprintf("%s(%s)", p.Op, p.Key)
	case PatchAddBlob:
		return fmt.Sprintf("%s(%s)", p.Op, p.Blob.ID)
	case PatchRemoveBlob:
		return fmt.Sprintf("%s(%s)", p.Op, p.ID)
	case PatchAddChildren:
		return fmt.Sprintf("%s(%d)", p.Op, len(p.Nodes))
	default:
		return p.Op.String()
	}
}

// Patch is an ordered list of edits plus the identity translation table
// (new element id -> id the frontend knows the element by).
type Patch struct {
	Items        []PatchItem
	Translations map[id.ID]id.ID
}

// NewPatch creates an empty patch.
func NewPatch() *Patch {
	return &Patch{Translations: make(map[id.ID]id.ID)}
}

// IsEmpty reports whether the patch contains no edits.
func (p *Patch) IsEmpty() bool {
	return len(p.Items) == 0
}

// Ops returns the op sequence, mostly useful in tests and logs.
func (p *Patch) Ops() []PatchOp {
	ops := make([]PatchOp, len(p.Items))
	for i, it := range p.Items {
		ops[i] = it.Op
	}
	return ops
}

func (p *Patch) push(item PatchItem) {
	p.Items = append(p.Items, item)
}

func (p *Patch) translate(from, to id.ID) {
	p.Translations[from] = to
}

// Tree is a rendered generation the differ can walk: a root node plus the
// stored subtrees of every component and the blobs it references.
type Tree interface {
	Root() *VNode
	Component(component id.ID) (*VNode, bool)
	Blobs() map[id.ID]*Blob
}

// Resolve returns n with placeholders replaced by their component subtrees,
// recursively. Nodes without placeholders are returned as is.
func Resolve(t Tree, n *VNode) *VNode {
	switch n.Kind {
	case KindPlaceholder:
		sub, ok := t.Component(n.ID)
		if !ok {
			panic(fmt.Sprintf("vdom: placeholder references unknown component %s", n.ID))
		}
		return Resolve(t, sub)
	case KindElement:
		var children []*VNode
		for i, c := range n.Children {
			rc := Resolve(t, c)
			if rc != c && children == nil {
				children = make([]*VNode, len(n.Children))
				copy(children, n.Children[:i])
			}
			if children != nil {
				children[i] = rc
			}
		}
		if children == nil {
			return n
		}
		cp := *n
		cp.Children = children
		return &cp
	default:
		return n
	}
}
