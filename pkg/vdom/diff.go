package vdom

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/vango-dev/sprout/pkg/id"
)

// Diff computes the patch that turns the frontend's copy of prev into next.
//
// translations is the table produced by the diff that created prev; it is
// followed so that every retained element maps back to the identifier the
// frontend first saw. Diff never fails: any mismatch degrades to Replace.
func Diff(prev Tree, translations map[id.ID]id.ID, next Tree) *Patch {
	d := &differ{
		prev:         prev,
		next:         next,
		translations: translations,
		patch:        NewPatch(),
	}

	d.diffNode(prev.Root(), next.Root())
	d.diffBlobs()

	d.patch.Items = optimize(d.patch.Items)
	return d.patch
}

// Initial returns the patch that installs next on a frontend that has never
// seen a frame: the resolved root replaces the mount point, followed by every
// blob next references.
func Initial(next Tree) *Patch {
	d := &differ{next: next, patch: NewPatch()}
	d.replace(next.Root())
	for _, bid := range sortedIDs(next.Blobs()) {
		d.patch.push(PatchItem{Op: PatchAddBlob, Blob: next.Blobs()[bid]})
	}
	return d.patch
}

type differ struct {
	prev, next   Tree
	translations map[id.ID]id.ID
	patch        *Patch
}

// diffNode reports whether any edit was emitted.
func (d *differ) diffNode(prev, next *VNode) bool {
	switch {
	case prev.Kind == KindElement && next.Kind == KindElement:
		// The frontend only learns an element's id from a node it receives.
		if !prev.SameShape(next) || (prev.ID.IsEmpty() && !next.ID.IsEmpty()) {
			d.replace(next)
			return true
		}
		d.translate(prev, next)

		changed := d.diffAttrs(prev.Attrs, next.Attrs, attrOps)
		if d.diffAttrs(prev.JSEvents, next.JSEvents, jsEventOps) {
			changed = true
		}
		if d.diffChildren(prev, next) {
			changed = true
		}
		return changed

	case prev.Kind == KindText && next.Kind == KindText:
		if prev.Text == next.Text {
			return false
		}
		d.patch.push(PatchItem{Op: PatchChangeText, Value: next.Text})
		return true

	case prev.Kind == KindPlaceholder && next.Kind == KindPlaceholder:
		if prev.ID != next.ID {
			d.replace(next)
			return true
		}
		return d.diffNode(component(d.prev, prev.ID), component(d.next, next.ID))

	default:
		d.replace(next)
		return true
	}
}

func (d *differ) replace(next *VNode) {
	d.patch.push(PatchItem{Op: PatchReplace, Node: Resolve(d.next, next)})
}

func (d *differ) translate(prev, next *VNode) {
	if prev.ID.IsEmpty() || next.ID.IsEmpty() {
		return
	}
	original := prev.ID
	if t, ok := d.translations[prev.ID]; ok {
		original = t
	}
	d.patch.translate(next.ID, original)
}

type attrOpSet struct {
	add, replace, remove PatchOp
}

var (
	attrOps    = attrOpSet{PatchAddAttribute, PatchReplaceAttribute, PatchRemoveAttribute}
	jsEventOps = attrOpSet{PatchAddJSEvent, PatchReplaceJSEvent, PatchRemoveJSEvent}
)

// diffAttrs emits replacements and additions in next order, then removals
// in prev order. A repeated key counts once, with its last value.
func (d *differ) diffAttrs(prev, next []Attr, ops attrOpSet) bool {
	if len(prev) == 0 && len(next) == 0 {
		return false
	}

	prevKeys, prevVals := lastWins(prev)
	nextKeys, nextVals := lastWins(next)

	changed := false
	for _, k := range nextKeys {
		v := nextVals[k]
		old, ok := prevVals[k]
		switch {
		case !ok:
			d.patch.push(PatchItem{Op: ops.add, Key: k, Value: v})
			changed = true
		case old != v:
			d.patch.push(PatchItem{Op: ops.replace, Key: k, Value: v})
			changed = true
		}
	}
	for _, k := range prevKeys {
		if _, ok := nextVals[k]; !ok {
			d.patch.push(PatchItem{Op: ops.remove, Key: k})
			changed = true
		}
	}
	return changed
}

// lastWins returns the distinct keys of attrs in first-occurrence order and
// the last value given for each.
func lastWins(attrs []Attr) ([]string, map[string]string) {
	keys := make([]string, 0, len(attrs))
	vals := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if _, ok := vals[a.Key]; !ok {
			keys = append(keys, a.Key)
		}
		vals[a.Key] = a.Value
	}
	return keys, vals
}

// diffChildren speculatively emits Descend/NextNode and rolls them back
// when no child changed.
func (d *differ) diffChildren(prev, next *VNode) bool {
	pc, nc := prev.Children, next.Children
	switch {
	case len(pc) == 0 && len(nc) == 0:
		return false
	case len(nc) == 0:
		d.patch.push(PatchItem{Op: PatchRemoveChildren})
		return true
	case len(pc) == 0:
		nodes := make([]*VNode, len(nc))
		for i, c := range nc {
			nodes[i] = Resolve(d.next, c)
		}
		d.patch.push(PatchItem{Op: PatchAddChildren, Nodes: nodes})
		return true
	}

	mark := len(d.patch.Items)
	d.patch.push(PatchItem{Op: PatchDescend})

	changed := false
	common := min(len(pc), len(nc))
	for i := 0; i < common; i++ {
		if i > 0 {
			d.patch.push(PatchItem{Op: PatchNextNode})
		}
		if d.diffNode(pc[i], nc[i]) {
			changed = true
		}
	}

	if len(pc) > len(nc) {
		d.patch.push(PatchItem{Op: PatchTruncateSiblings})
		changed = true
	}
	for _, c := range nc[common:] {
		d.patch.push(PatchItem{Op: PatchAppendSibling, Node: Resolve(d.next, c)})
		changed = true
	}

	if !changed {
		d.patch.Items = d.patch.Items[:mark]
		return false
	}
	d.patch.push(PatchItem{Op: PatchAscend})
	return true
}

// diffBlobs emits removals then additions, each ordered by id.
func (d *differ) diffBlobs() {
	prev, next := d.prev.Blobs(), d.next.Blobs()

	for _, bid := range sortedIDs(prev) {
		if _, ok := next[bid]; !ok {
			d.patch.push(PatchItem{Op: PatchRemoveBlob, ID: bid})
		}
	}
	for _, bid := range sortedIDs(next) {
		b := next[bid]
		if old, ok := prev[bid]; ok && old.Hash == b.Hash {
			continue
		}
		d.patch.push(PatchItem{Op: PatchAddBlob, Blob: b})
	}
}

func sortedIDs(m map[id.ID]*Blob) []id.ID {
	return slices.SortedFunc(maps.Keys(m), cmp.Compare[id.ID])
}

func component(t Tree, cid id.ID) *VNode {
	n, ok := t.Component(cid)
	if !ok {
		panic(fmt.Sprintf("vdom: placeholder references unknown component %s", cid))
	}
	return n
}

// optimize drops Descend NextNode* Ascend runs that bracket no edit.
func optimize(items []PatchItem) []PatchItem {
	out := make([]PatchItem, 0, len(items))
	for _, it := range items {
		if it.Op == PatchAscend {
			j := len(out)
			for j > 0 && out[j-1].Op == PatchNextNode {
				j--
			}
			if j > 0 && out[j-1].Op == PatchDescend {
				out = out[:j-1]
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
