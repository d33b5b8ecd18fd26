package runtime

import (
	"sync"

	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
)

// Renderer produces a tree.
type Renderer[M any] interface {
	Render() node.Node[M]
}

// App is the root of an application.
type App[M any] interface {
	Renderer[M]
	Update(msg M, ctx *Context[M]) Updated
}

// Mounter is implemented by apps and components that need to run
// commands before their first render.
type Mounter[M any] interface {
	Mount(ctx *Context[M])
}

// Component wraps a value so it renders independently of its parent. The
// runtime reuses the last render of a component that was not invalidated.
//
// A Component is shared between the tree it is mounted in and the parent
// holding it; access to the inner value is serialized by a mutex.
type Component[M any, T Renderer[M]] struct {
	id    id.ID
	mu    sync.Mutex
	inner T
}

// NewComponent wraps inner with a fresh id.
func NewComponent[M any, T Renderer[M]](ids *id.Allocator, inner T) *Component[M, T] {
	return &Component[M, T]{id: ids.Next(), inner: inner}
}

// ID implements node.Mountable.
func (c *Component[M, T]) ID() id.ID { return c.id }

// Render implements node.Mountable.
func (c *Component[M, T]) Render() node.Node[M] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Render()
}

// Mount returns a node placing the component in a parent tree.
func (c *Component[M, T]) Mount() node.Node[M] {
	return node.Component[M](c)
}

// With runs fn with exclusive access to the inner value.
func (c *Component[M, T]) With(fn func(inner T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.inner)
}

// Update forwards msg to the inner value if it is an App. A request for a
// full render is narrowed to this component.
func (c *Component[M, T]) Update(msg M, ctx *Context[M]) Updated {
	c.mu.Lock()
	defer c.mu.Unlock()
	app, ok := any(c.inner).(App[M])
	if !ok {
		return No()
	}
	u := app.Update(msg, ctx)
	if u.ShouldRender {
		u.ShouldRender = false
		u.Components = append(u.Components, c.id)
	}
	return u
}

// OnMount forwards to the inner value if it is a Mounter.
func (c *Component[M, T]) OnMount(ctx *Context[M]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := any(c.inner).(Mounter[M]); ok {
		m.Mount(ctx)
	}
}
