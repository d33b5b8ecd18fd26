package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/vdom"
)

func TestPatchRoundTripReplace(t *testing.T) {
	node := &vdom.VNode{
		Kind: vdom.KindElement,
		ID:   id.ID(3),
		Tag:  "a",
		Attrs: []vdom.Attr{
			{Key: "href", Value: "/home"},
			{Key: "class", Value: "link"},
		},
		Events:   []vdom.EventHandler{{Name: "click", PreventDefault: true}},
		Children: []*vdom.VNode{vdom.NewText("Home")},
	}
	patch := &vdom.Patch{Items: []vdom.PatchItem{{Op: vdom.PatchReplace, Node: node}}}

	data, err := EncodePatch(patch)
	if err != nil {
		t.Fatalf("EncodePatch: %v", err)
	}
	if data[0] != 3 {
		t.Errorf("op tag = %d, want 3", data[0])
	}

	items, err := DecodePatch(data)
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if len(items) != 1 || items[0].Op != vdom.PatchReplace {
		t.Fatalf("items = %v", items)
	}
	got := items[0].Node
	if got.Tag != "a" || got.ID != 3 {
		t.Errorf("tag/id = %q/%s", got.Tag, got.ID)
	}
	if diff := cmp.Diff(node.Attrs, got.Attrs); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}
	if len(got.Children) != 1 || got.Children[0].Text != "Home" {
		t.Errorf("children = %v", got.Children)
	}
	if diff := cmp.Diff(node.Events, got.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchRoundTripAllOps(t *testing.T) {
	svg := vdom.NewElement("circle")
	svg.Namespace = "http://www.w3.org/2000/svg"

	items := []vdom.PatchItem{
		{Op: vdom.PatchDescend},
		{Op: vdom.PatchNextNode},
		{Op: vdom.PatchChangeText, Value: "hi"},
		{Op: vdom.PatchAddAttribute, Key: "a", Value: "1"},
		{Op: vdom.PatchReplaceAttribute, Key: "b", Value: "2"},
		{Op: vdom.PatchRemoveAttribute, Key: "c"},
		{Op: vdom.PatchAddJSEvent, Key: "click", Value: "f()"},
		{Op: vdom.PatchReplaceJSEvent, Key: "blur", Value: "g()"},
		{Op: vdom.PatchRemoveJSEvent, Key: "focus"},
		{Op: vdom.PatchAppendSibling, Node: svg},
		{Op: vdom.PatchTruncateSiblings},
		{Op: vdom.PatchRemoveChildren},
		{Op: vdom.PatchAddChildren, Nodes: []*vdom.VNode{vdom.NewText("x"), vdom.NewText("y")}},
		{Op: vdom.PatchAddBlob, Blob: &vdom.Blob{ID: 9, Hash: 42, MimeType: "image/png", Data: []byte{1, 2, 3}}},
		{Op: vdom.PatchRemoveBlob, ID: 8},
		{Op: vdom.PatchAscend},
	}

	data, err := EncodePatch(&vdom.Patch{Items: items})
	if err != nil {
		t.Fatalf("EncodePatch: %v", err)
	}
	got, err := DecodePatch(data)
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodePatchRejectsPlaceholder(t *testing.T) {
	patch := &vdom.Patch{Items: []vdom.PatchItem{{Op: vdom.PatchReplace, Node: vdom.NewPlaceholder(1)}}}
	if _, err := EncodePatch(patch); !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Errorf("err = %v, want ErrUnresolvedPlaceholder", err)
	}
}

func TestDecodePatchErrors(t *testing.T) {
	if _, err := DecodePatch([]byte{2}); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("op 2: %v", err)
	}
	if _, err := DecodePatch([]byte{3, 7}); !errors.Is(err, ErrUnknownNodeKind) {
		t.Errorf("node kind 7: %v", err)
	}
	if _, err := DecodePatch([]byte{4, 5, 0, 0, 0, 'a'}); err == nil {
		t.Error("expected error for truncated text")
	}
}

func TestDecodePatchDepthLimit(t *testing.T) {
	root := vdom.NewElement("div")
	cur := root
	for i := 0; i < MaxVNodeDepth+1; i++ {
		child := vdom.NewElement("div")
		cur.Children = []*vdom.VNode{child}
		cur = child
	}
	data, err := EncodePatch(&vdom.Patch{Items: []vdom.PatchItem{{Op: vdom.PatchReplace, Node: root}}})
	if err != nil {
		t.Fatalf("EncodePatch: %v", err)
	}
	if _, err := DecodePatch(data); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("err = %v, want ErrMaxDepthExceeded", err)
	}
}
