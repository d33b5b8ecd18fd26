package render

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// RenderedComponent is the snapshot of one component's last render: its
// subtree and everything it owns directly.
type RenderedComponent[M any] struct {
	component     node.Mountable[M]
	vdom          *vdom.VNode
	listeners     []*node.Listener[M]
	subscriptions []*node.Subscription[M]
	rpcs          []*node.RPC[M]
	blobs         []*vdom.Blob
	children      []id.ID
}

// VNode returns the component's rendered subtree.
func (rc *RenderedComponent[M]) VNode() *vdom.VNode { return rc.vdom }

// Children returns the ids of the components nested directly inside.
func (rc *RenderedComponent[M]) Children() []id.ID { return rc.children }

// Result is the output of one render pass.
type Result[M any] struct {
	listeners     map[node.ListenerKey]*node.Listener[M]
	subscriptions map[id.ID][]*node.Subscription[M]
	rpcs          map[id.ID]*node.RPC[M]
	blobs         map[id.ID]*vdom.Blob
	components    map[id.ID]*RenderedComponent[M]
	top           *RenderedComponent[M] // items owned by the root tree itself
	rendered      mapset.Set[id.ID]
	root          *vdom.VNode
}

func newResult[M any]() *Result[M] {
	return &Result[M]{
		listeners:     make(map[node.ListenerKey]*node.Listener[M]),
		subscriptions: make(map[id.ID][]*node.Subscription[M]),
		rpcs:          make(map[id.ID]*node.RPC[M]),
		blobs:         make(map[id.ID]*vdom.Blob),
		components:    make(map[id.ID]*RenderedComponent[M]),
		rendered:      mapset.NewThreadUnsafeSet[id.ID](),
	}
}

// Root returns the root node.
func (r *Result[M]) Root() *vdom.VNode { return r.root }

// Component returns the stored subtree of a component.
func (r *Result[M]) Component(cid id.ID) (*vdom.VNode, bool) {
	rc, ok := r.components[cid]
	if !ok {
		return nil, false
	}
	return rc.vdom, true
}

// Blobs returns all blobs referenced by the tree.
func (r *Result[M]) Blobs() map[id.ID]*vdom.Blob { return r.blobs }

// Listener looks up a listener.
func (r *Result[M]) Listener(key node.ListenerKey) (*node.Listener[M], bool) {
	l, ok := r.listeners[key]
	return l, ok
}

// Subscriptions returns the subscribers of an event.
func (r *Result[M]) Subscriptions(event id.ID) []*node.Subscription[M] {
	return r.subscriptions[event]
}

// RPC looks up the RPC handler of an element.
func (r *Result[M]) RPC(target id.ID) (*node.RPC[M], bool) {
	h, ok := r.rpcs[target]
	return h, ok
}

// RenderedComponent returns the snapshot of a component.
func (r *Result[M]) RenderedComponent(cid id.ID) (*RenderedComponent[M], bool) {
	rc, ok := r.components[cid]
	return rc, ok
}

// RootComponents returns the components placed directly in the root tree.
func (r *Result[M]) RootComponents() []id.ID { return r.top.children }

// Rendered reports the components whose render function ran in this pass.
func (r *Result[M]) Rendered() mapset.Set[id.ID] { return r.rendered }

// Stats summarizes the side-tables, mostly for logging.
func (r *Result[M]) Stats() Stats {
	subs := 0
	for _, s := range r.subscriptions {
		subs += len(s)
	}
	return Stats{
		Listeners:     len(r.listeners),
		Subscriptions: subs,
		RPCs:          len(r.rpcs),
		Blobs:         len(r.blobs),
		Components:    len(r.components),
		Rendered:      r.rendered.Cardinality(),
	}
}

// Stats holds side-table sizes of a Result.
type Stats struct {
	Listeners     int
	Subscriptions int
	RPCs          int
	Blobs         int
	Components    int
	Rendered      int
}

// FromRoot renders the whole tree, calling every component's render function.
func FromRoot[M any](root node.Node[M]) *Result[M] {
	c := &collector[M]{res: newResult[M]()}
	c.res.top = &RenderedComponent[M]{}
	c.res.root = c.collect(root, c.res.top)
	if c.res.root == nil {
		panic("render: root rendered no DOM node")
	}
	return c.res
}

// FromFrame re-renders only the invalidated components. The root tree and
// every other component are carried forward from prev without calling
// their render functions.
func FromFrame[M any](prev *Result[M], invalidated mapset.Set[id.ID]) *Result[M] {
	c := &collector[M]{res: newResult[M](), prev: prev, invalidated: invalidated}
	c.res.root = prev.root
	c.res.top = prev.top
	c.adopt(prev.top)
	return c.res
}

type collector[M any] struct {
	res         *Result[M]
	prev        *Result[M]
	invalidated mapset.Set[id.ID]
}

func (c *collector[M]) collect(n node.Node[M], owner *RenderedComponent[M]) *vdom.VNode {
	switch n.Kind() {
	case node.KindElement:
		return c.element(n.Element(), owner)

	case node.KindText:
		return vdom.NewText(n.Text())

	case node.KindComponent:
		comp := n.Component()
		owner.children = append(owner.children, comp.ID())
		c.component(comp)
		return vdom.NewPlaceholder(comp.ID())

	case node.KindSubscription:
		s := n.Subscription()
		owner.subscriptions = append(owner.subscriptions, s)
		c.res.subscriptions[s.Event] = append(c.res.subscriptions[s.Event], s)
		return nil

	case node.KindBlob:
		b := n.Blob()
		owner.blobs = append(owner.blobs, b)
		c.res.blobs[b.ID] = b
		return nil

	default:
		panic(fmt.Sprintf("render: unknown node kind %s", n.Kind()))
	}
}

func (c *collector[M]) element(e *node.Element[M], owner *RenderedComponent[M]) *vdom.VNode {
	vn := &vdom.VNode{
		Kind:      vdom.KindElement,
		ID:        e.ID,
		Tag:       e.Tag,
		Namespace: e.Namespace,
		Attrs:     e.Attrs,
		JSEvents:  e.JSEvents,
	}

	for _, child := range e.Children {
		if cv := c.collect(child, owner); cv != nil {
			vn.Children = append(vn.Children, cv)
		}
	}

	for _, l := range e.Listeners {
		c.res.listeners[l.Key()] = l
		owner.listeners = append(owner.listeners, l)
		vn.Events = setHandler(vn.Events, l.Handler())
	}

	if e.RPC != nil {
		c.res.rpcs[e.RPC.Target] = e.RPC
		owner.rpcs = append(owner.rpcs, e.RPC)
	}
	return vn
}

// setHandler replaces a handler with the same name in place, so the later
// listener wins both in the map and in the descriptor list.
func setHandler(events []vdom.EventHandler, h vdom.EventHandler) []vdom.EventHandler {
	for i := range events {
		if events[i].Name == h.Name {
			events[i] = h
			return events
		}
	}
	return append(events, h)
}

func (c *collector[M]) component(comp node.Mountable[M]) {
	cid := comp.ID()
	if c.prev != nil && !c.invalidated.Contains(cid) {
		if rc, ok := c.prev.components[cid]; ok {
			c.res.components[cid] = rc
			c.adopt(rc)
			return
		}
	}

	rc := &RenderedComponent[M]{component: comp}
	rc.vdom = c.collect(comp.Render(), rc)
	if rc.vdom == nil {
		panic(fmt.Sprintf("render: component %s rendered no DOM node", cid))
	}
	c.res.components[cid] = rc
	c.res.rendered.Add(cid)
}

// adopt copies a reused snapshot's side-tables into the result and visits
// its nested components, which may still be invalidated themselves.
func (c *collector[M]) adopt(rc *RenderedComponent[M]) {
	for _, l := range rc.listeners {
		c.res.listeners[l.Key()] = l
	}
	for _, s := range rc.subscriptions {
		c.res.subscriptions[s.Event] = append(c.res.subscriptions[s.Event], s)
	}
	for _, h := range rc.rpcs {
		c.res.rpcs[h.Target] = h
	}
	for _, b := range rc.blobs {
		c.res.blobs[b.ID] = b
	}
	for _, child := range rc.children {
		prevChild, ok := c.prev.components[child]
		if !ok {
			panic(fmt.Sprintf("render: reused tree references unknown component %s", child))
		}
		c.component(prevChild.component)
	}
}
