package runtime

import "github.com/vango-dev/sprout/pkg/id"

// Updated tells the runtime which part of the tree an update invalidated.
//
// ShouldRender requests a full render from the application root.
// Components lists components whose render functions must run again while
// everything else is reused from the previous frame.
type Updated struct {
	ShouldRender bool
	Components   []id.ID
}

// Yes requests a full render.
func Yes() Updated { return Updated{ShouldRender: true} }

// No requests nothing.
func No() Updated { return Updated{} }

// Invalidate requests an incremental render of the given components.
func Invalidate(components ...id.ID) Updated {
	return Updated{Components: components}
}

// Merge combines two results. A full render absorbs any component list.
func (u Updated) Merge(other Updated) Updated {
	if u.ShouldRender || other.ShouldRender {
		return Yes()
	}
	if len(other.Components) == 0 {
		return u
	}
	out := make([]id.ID, 0, len(u.Components)+len(other.Components))
	out = append(out, u.Components...)
	out = append(out, other.Components...)
	return Updated{Components: out}
}

// Empty reports whether nothing needs rendering.
func (u Updated) Empty() bool {
	return !u.ShouldRender && len(u.Components) == 0
}
