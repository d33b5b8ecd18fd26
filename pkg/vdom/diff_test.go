package vdom

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/sprout/pkg/id"
)

// staticTree is a Tree backed by plain maps.
type staticTree struct {
	root       *VNode
	components map[id.ID]*VNode
	blobs      map[id.ID]*Blob
}

func tree(root *VNode) *staticTree {
	return &staticTree{root: root, components: map[id.ID]*VNode{}, blobs: map[id.ID]*Blob{}}
}

func (t *staticTree) Root() *VNode { return t.root }

func (t *staticTree) Component(c id.ID) (*VNode, bool) {
	n, ok := t.components[c]
	return n, ok
}

func (t *staticTree) Blobs() map[id.ID]*Blob { return t.blobs }

func el(tag string, children ...*VNode) *VNode {
	n := NewElement(tag)
	n.Children = children
	return n
}

func withAttrs(n *VNode, kv ...string) *VNode {
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs = append(n.Attrs, Attr{Key: kv[i], Value: kv[i+1]})
	}
	return n
}

func withID(n *VNode, v id.ID) *VNode {
	n.ID = v
	return n
}

func TestDiffSelfIsEmpty(t *testing.T) {
	root := withID(el("div",
		withAttrs(el("span", NewText("a")), "class", "x"),
		withID(el("button", NewText("go")), 2),
	), 1)
	root.Children[1].Events = []EventHandler{{Name: "click"}}
	root.Events = []EventHandler{{Name: "input"}}

	patch := Diff(tree(root), nil, tree(root))

	if !patch.IsEmpty() {
		t.Fatalf("expected empty patch, got %v", patch.Items)
	}
	want := map[id.ID]id.ID{1: 1, 2: 2}
	if diff := cmp.Diff(want, patch.Translations); diff != "" {
		t.Errorf("translations mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffTagMismatchReplaces(t *testing.T) {
	next := el("section", NewText("new"))
	patch := Diff(tree(el("div", NewText("old"))), nil, tree(next))

	if len(patch.Items) != 1 {
		t.Fatalf("expected 1 item, got %v", patch.Items)
	}
	if patch.Items[0].Op != PatchReplace {
		t.Errorf("Op = %v, want Replace", patch.Items[0].Op)
	}
	if patch.Items[0].Node != next {
		t.Error("Replace should carry the new root")
	}
}

func TestDiffNamespaceMismatchReplaces(t *testing.T) {
	prev := el("a")
	next := el("a")
	next.Namespace = "http://www.w3.org/2000/svg"

	patch := Diff(tree(prev), nil, tree(next))
	if got := patch.Ops(); !slices.Equal(got, []PatchOp{PatchReplace}) {
		t.Errorf("ops = %v, want [Replace]", got)
	}
}

func TestDiffEventSetMismatchReplaces(t *testing.T) {
	prev := withID(el("button"), 1)
	prev.Events = []EventHandler{{Name: "click"}}
	next := withID(el("button"), 2)
	next.Events = []EventHandler{{Name: "click", PreventDefault: true}}

	patch := Diff(tree(prev), nil, tree(next))
	if got := patch.Ops(); !slices.Equal(got, []PatchOp{PatchReplace}) {
		t.Errorf("ops = %v, want [Replace]", got)
	}
	if len(patch.Translations) != 0 {
		t.Errorf("replaced element must not be translated, got %v", patch.Translations)
	}
}

func TestDiffAttributeSetDifference(t *testing.T) {
	prev := withAttrs(el("div"), "a", "1", "b", "2")
	next := withAttrs(el("div"), "b", "3", "c", "4")

	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchItem{
		{Op: PatchReplaceAttribute, Key: "b", Value: "3"},
		{Op: PatchAddAttribute, Key: "c", Value: "4"},
		{Op: PatchRemoveAttribute, Key: "a"},
	}
	if diff := cmp.Diff(want, patch.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffRepeatedAttributeKeys(t *testing.T) {
	same := func() *VNode { return withAttrs(el("div"), "class", "x", "class", "y") }

	if patch := Diff(tree(same()), nil, tree(same())); !patch.IsEmpty() {
		t.Fatalf("expected empty patch, got %v", patch.Items)
	}

	prev := withAttrs(el("div"), "class", "x", "id", "a", "class", "y")
	next := withAttrs(el("div"), "class", "z", "class", "y", "title", "t", "title", "u")
	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchItem{
		{Op: PatchAddAttribute, Key: "title", Value: "u"},
		{Op: PatchRemoveAttribute, Key: "id"},
	}
	if diff := cmp.Diff(want, patch.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffJSEvents(t *testing.T) {
	prev := el("div")
	prev.JSEvents = []Attr{{Key: "click", Value: "a()"}, {Key: "blur", Value: "b()"}}
	next := el("div")
	next.JSEvents = []Attr{{Key: "click", Value: "c()"}, {Key: "focus", Value: "d()"}}

	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchItem{
		{Op: PatchReplaceJSEvent, Key: "click", Value: "c()"},
		{Op: PatchAddJSEvent, Key: "focus", Value: "d()"},
		{Op: PatchRemoveJSEvent, Key: "blur"},
	}
	if diff := cmp.Diff(want, patch.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffChildTruncation(t *testing.T) {
	prev := el("ul", el("li", NewText("A")), el("li", NewText("B")), el("li", NewText("C")))
	next := el("ul", el("li", NewText("A")), el("li", NewText("B")))

	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchOp{PatchDescend, PatchNextNode, PatchTruncateSiblings, PatchAscend}
	if got := patch.Ops(); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestDiffChildAppend(t *testing.T) {
	b := el("li", NewText("B"))
	prev := el("ul", el("li", NewText("A")))
	next := el("ul", el("li", NewText("A")), b)

	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchOp{PatchDescend, PatchAppendSibling, PatchAscend}
	if got := patch.Ops(); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if patch.Items[1].Node != b {
		t.Error("AppendSibling should carry B")
	}
}

func TestDiffNestedTextChange(t *testing.T) {
	prev := el("div", el("p", NewText("same")), el("p", NewText("old")))
	next := el("div", el("p", NewText("same")), el("p", NewText("new")))

	patch := Diff(tree(prev), nil, tree(next))

	want := []PatchItem{
		{Op: PatchDescend},
		{Op: PatchNextNode},
		{Op: PatchDescend},
		{Op: PatchChangeText, Value: "new"},
		{Op: PatchAscend},
		{Op: PatchAscend},
	}
	if diff := cmp.Diff(want, patch.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffRemoveAndAddChildren(t *testing.T) {
	patch := Diff(tree(el("div", NewText("x"))), nil, tree(el("div")))
	if got := patch.Ops(); !slices.Equal(got, []PatchOp{PatchRemoveChildren}) {
		t.Errorf("ops = %v, want [RemoveChildren]", got)
	}

	patch = Diff(tree(el("div")), nil, tree(el("div", NewText("x"), NewText("y"))))
	if got := patch.Ops(); !slices.Equal(got, []PatchOp{PatchAddChildren}) {
		t.Fatalf("ops = %v, want [AddChildren]", got)
	}
	if n := len(patch.Items[0].Nodes); n != 2 {
		t.Errorf("AddChildren carries %d nodes, want 2", n)
	}
}

func TestDiffTypeMismatchReplaces(t *testing.T) {
	patch := Diff(tree(el("div", NewText("x"))), nil, tree(el("div", el("b"))))

	want := []PatchOp{PatchDescend, PatchReplace, PatchAscend}
	if got := patch.Ops(); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestDiffPlaceholderSameComponent(t *testing.T) {
	prev := tree(el("div", NewPlaceholder(7)))
	prev.components[7] = el("span", NewText("0"))
	next := tree(el("div", NewPlaceholder(7)))
	next.components[7] = el("span", NewText("1"))

	patch := Diff(prev, nil, next)

	want := []PatchItem{
		{Op: PatchDescend},
		{Op: PatchDescend},
		{Op: PatchChangeText, Value: "1"},
		{Op: PatchAscend},
		{Op: PatchAscend},
	}
	if diff := cmp.Diff(want, patch.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffPlaceholderDifferentComponent(t *testing.T) {
	prev := tree(NewPlaceholder(7))
	prev.components[7] = el("span")
	next := tree(NewPlaceholder(8))
	inner := el("em")
	next.components[8] = el("strong", NewPlaceholder(9))
	next.components[9] = inner

	patch := Diff(prev, nil, next)

	if got := patch.Ops(); !slices.Equal(got, []PatchOp{PatchReplace}) {
		t.Fatalf("ops = %v, want [Replace]", got)
	}
	n := patch.Items[0].Node
	if n.Tag != "strong" {
		t.Errorf("Replace tag = %q, want strong", n.Tag)
	}
	if n.Children[0] != inner {
		t.Error("nested placeholder was not resolved")
	}
}

func TestDiffTranslationFollowsChain(t *testing.T) {
	prev := withID(el("button"), 5)
	prev.Events = []EventHandler{{Name: "click"}}
	next := withID(el("button"), 9)
	next.Events = []EventHandler{{Name: "click"}}

	patch := Diff(tree(prev), map[id.ID]id.ID{5: 1}, tree(next))

	if !patch.IsEmpty() {
		t.Fatalf("expected no edits, got %v", patch.Items)
	}
	if got := patch.Translations[9]; got != 1 {
		t.Errorf("translation of 9 = %s, want id(1)", got)
	}
}

func TestDiffElementGainingIDReplaces(t *testing.T) {
	next := withID(el("div", NewText("x")), 4)
	patch := Diff(tree(el("div", NewText("x"))), nil, tree(next))

	if len(patch.Items) != 1 || patch.Items[0].Op != PatchReplace {
		t.Fatalf("expected a single Replace, got %v", patch.Items)
	}
	if patch.Items[0].Node != next {
		t.Error("Replace should carry the element with its new id")
	}
	if len(patch.Translations) != 0 {
		t.Errorf("replaced element must not be translated, got %v", patch.Translations)
	}
}

func TestDiffElementLosingIDKeepsShape(t *testing.T) {
	patch := Diff(tree(withID(el("div"), 4)), nil, tree(el("div")))

	if !patch.IsEmpty() {
		t.Fatalf("expected empty patch, got %v", patch.Items)
	}
}

func TestDiffBlobs(t *testing.T) {
	prev := tree(el("div"))
	prev.blobs[1] = &Blob{ID: 1, Hash: 10}
	prev.blobs[2] = &Blob{ID: 2, Hash: 20}
	next := tree(el("div"))
	next.blobs[2] = &Blob{ID: 2, Hash: 21}
	next.blobs[3] = &Blob{ID: 3, Hash: 30}

	patch := Diff(prev, nil, next)

	want := []string{"RemoveBlob(id(1))", "AddBlob(id(2))", "AddBlob(id(3))"}
	var got []string
	for _, it := range patch.Items {
		got = append(got, it.String())
	}
	if !slices.Equal(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestOptimizeDropsEmptyBrackets(t *testing.T) {
	items := []PatchItem{
		{Op: PatchDescend},
		{Op: PatchNextNode},
		{Op: PatchDescend},
		{Op: PatchAscend},
		{Op: PatchAscend},
		{Op: PatchDescend},
		{Op: PatchChangeText, Value: "x"},
		{Op: PatchAscend},
	}

	got := optimize(items)

	want := []PatchOp{PatchDescend, PatchChangeText, PatchAscend}
	var ops []PatchOp
	for _, it := range got {
		ops = append(ops, it.Op)
	}
	if !slices.Equal(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestResolveLeavesPlainTreesAlone(t *testing.T) {
	n := el("div", NewText("x"))
	if Resolve(tree(n), n) != n {
		t.Error("Resolve copied a tree without placeholders")
	}
}

func TestInitialReplacesResolvedRoot(t *testing.T) {
	tr := tree(el("main", NewPlaceholder(id.ID(3))))
	tr.components[id.ID(3)] = el("span")
	tr.blobs[id.ID(20)] = &Blob{ID: id.ID(20), Hash: 1, MimeType: "image/png"}
	tr.blobs[id.ID(10)] = &Blob{ID: id.ID(10), Hash: 2, MimeType: "image/png"}

	p := Initial(tr)

	want := []PatchOp{PatchReplace, PatchAddBlob, PatchAddBlob}
	if diff := cmp.Diff(want, p.Ops()); diff != "" {
		t.Fatalf("ops mismatch (-want +got):\n%s", diff)
	}
	if got := p.Items[0].Node.Children[0]; got.Kind != KindElement || got.Tag != "span" {
		t.Errorf("placeholder not resolved: %+v", got)
	}
	if p.Items[1].Blob.ID != id.ID(10) || p.Items[2].Blob.ID != id.ID(20) {
		t.Errorf("blobs not ordered by id")
	}
	if len(p.Translations) != 0 {
		t.Errorf("initial patch should carry no translations, got %v", p.Translations)
	}
}
