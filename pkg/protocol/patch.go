package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/sprout/pkg/vdom"
)

// Node kind tags.
const (
	nodeElement byte = 0
	nodeText    byte = 1
)

// Patch encoding errors.
var (
	ErrUnresolvedPlaceholder = errors.New("protocol: unresolved placeholder in patch")
	ErrUnknownOp             = errors.New("protocol: unknown patch op")
	ErrUnknownNodeKind       = errors.New("protocol: unknown node kind")
	ErrMaxDepthExceeded      = errors.New("protocol: maximum nesting depth exceeded")
)

// MaxVNodeDepth bounds the nesting of decoded node trees.
const MaxVNodeDepth = 256

// EncodePatch serializes the patch items. Translations are not part of the
// wire payload; the runtime keeps them.
func EncodePatch(p *vdom.Patch) ([]byte, error) {
	e := NewEncoderWithCap(64 + 32*len(p.Items))
	if err := EncodePatchTo(e, p.Items); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodePatchTo appends the encoded items to e.
func EncodePatchTo(e *Encoder, items []vdom.PatchItem) error {
	for _, it := range items {
		e.PutByte(byte(it.Op))

		switch it.Op {
		case vdom.PatchAppendSibling, vdom.PatchReplace:
			if err := encodeNode(e, it.Node); err != nil {
				return err
			}

		case vdom.PatchChangeText:
			e.WriteString(it.Value)

		case vdom.PatchAscend, vdom.PatchDescend, vdom.PatchNextNode,
			vdom.PatchRemoveChildren, vdom.PatchTruncateSiblings:
			// No payload

		case vdom.PatchRemoveAttribute, vdom.PatchRemoveJSEvent:
			e.WriteString(it.Key)

		case vdom.PatchAddAttribute, vdom.PatchReplaceAttribute,
			vdom.PatchAddJSEvent, vdom.PatchReplaceJSEvent:
			e.WriteString(it.Key)
			e.WriteString(it.Value)

		case vdom.PatchAddBlob:
			e.WriteID(it.Blob.ID)
			e.WriteUint64(it.Blob.Hash)
			e.WriteString(it.Blob.MimeType)
			e.WriteLenBytes(it.Blob.Data)

		case vdom.PatchRemoveBlob:
			e.WriteID(it.ID)

		case vdom.PatchAddChildren:
			e.WriteLen(len(it.Nodes))
			for _, n := range it.Nodes {
				if err := encodeNode(e, n); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("%w: %d", ErrUnknownOp, it.Op)
		}
	}
	return nil
}

func encodeNode(e *Encoder, n *vdom.VNode) error {
	switch n.Kind {
	case vdom.KindText:
		e.PutByte(nodeText)
		e.WriteString(n.Text)
		return nil

	case vdom.KindElement:
		e.PutByte(nodeElement)
		e.WriteID(n.ID)
		e.WriteString(n.Tag)

		e.WriteLen(len(n.Attrs))
		for _, a := range n.Attrs {
			e.WriteString(a.Key)
			e.WriteString(a.Value)
		}

		e.WriteLen(len(n.Events))
		for _, ev := range n.Events {
			e.WriteBool(ev.NoPropagate)
			e.WriteBool(ev.PreventDefault)
			e.WriteString(ev.Name)
		}

		e.WriteLen(len(n.Children))
		for _, c := range n.Children {
			if err := encodeNode(e, c); err != nil {
				return err
			}
		}

		e.WriteOptString(n.Namespace)
		return nil

	default:
		return ErrUnresolvedPlaceholder
	}
}

// DecodePatch decodes a patch payload back into items.
// Decoded elements carry no JS hooks, since those travel as patch ops only.
func DecodePatch(data []byte) ([]vdom.PatchItem, error) {
	d := NewDecoder(data)
	var items []vdom.PatchItem

	for !d.EOF() {
		tag, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		it := vdom.PatchItem{Op: vdom.PatchOp(tag)}

		switch it.Op {
		case vdom.PatchAppendSibling, vdom.PatchReplace:
			if it.Node, err = decodeNode(d, 1); err != nil {
				return nil, err
			}

		case vdom.PatchChangeText:
			if it.Value, err = d.ReadString(); err != nil {
				return nil, err
			}

		case vdom.PatchAscend, vdom.PatchDescend, vdom.PatchNextNode,
			vdom.PatchRemoveChildren, vdom.PatchTruncateSiblings:

		case vdom.PatchRemoveAttribute, vdom.PatchRemoveJSEvent:
			if it.Key, err = d.ReadString(); err != nil {
				return nil, err
			}

		case vdom.PatchAddAttribute, vdom.PatchReplaceAttribute,
			vdom.PatchAddJSEvent, vdom.PatchReplaceJSEvent:
			if it.Key, err = d.ReadString(); err != nil {
				return nil, err
			}
			if it.Value, err = d.ReadString(); err != nil {
				return nil, err
			}

		case vdom.PatchAddBlob:
			if it.Blob, err = decodeBlob(d); err != nil {
				return nil, err
			}

		case vdom.PatchRemoveBlob:
			if it.ID, err = d.ReadID(); err != nil {
				return nil, err
			}

		case vdom.PatchAddChildren:
			count, err := d.ReadCount()
			if err != nil {
				return nil, err
			}
			it.Nodes = make([]*vdom.VNode, 0, count)
			for i := 0; i < count; i++ {
				n, err := decodeNode(d, 1)
				if err != nil {
					return nil, err
				}
				it.Nodes = append(it.Nodes, n)
			}

		default:
			return nil, fmt.Errorf("%w: %d at offset %d", ErrUnknownOp, tag, d.Position()-1)
		}

		items = append(items, it)
	}
	return items, nil
}

func decodeBlob(d *Decoder) (*vdom.Blob, error) {
	var (
		b   vdom.Blob
		err error
	)
	if b.ID, err = d.ReadID(); err != nil {
		return nil, err
	}
	if b.Hash, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if b.MimeType, err = d.ReadString(); err != nil {
		return nil, err
	}
	if b.Data, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	return &b, nil
}

func decodeNode(d *Decoder, depth int) (*vdom.VNode, error) {
	if depth > MaxVNodeDepth {
		return nil, ErrMaxDepthExceeded
	}

	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch kind {
	case nodeText:
		text, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return vdom.NewText(text), nil

	case nodeElement:
		n := &vdom.VNode{Kind: vdom.KindElement}
		if n.ID, err = d.ReadID(); err != nil {
			return nil, err
		}
		if n.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}

		count, err := d.ReadCount()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			var a vdom.Attr
			if a.Key, err = d.ReadString(); err != nil {
				return nil, err
			}
			if a.Value, err = d.ReadString(); err != nil {
				return nil, err
			}
			n.Attrs = append(n.Attrs, a)
		}

		if count, err = d.ReadCount(); err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			var ev vdom.EventHandler
			if ev.NoPropagate, err = d.ReadBool(); err != nil {
				return nil, err
			}
			if ev.PreventDefault, err = d.ReadBool(); err != nil {
				return nil, err
			}
			if ev.Name, err = d.ReadString(); err != nil {
				return nil, err
			}
			n.Events = append(n.Events, ev)
		}

		if count, err = d.ReadCount(); err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			c, err := decodeNode(d, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}

		if n.Namespace, err = d.ReadOptString(); err != nil {
			return nil, err
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownNodeKind, kind)
	}
}
