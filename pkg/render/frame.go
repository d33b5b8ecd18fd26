package render

import (
	"github.com/vango-dev/sprout/pkg/id"
	"github.com/vango-dev/sprout/pkg/node"
	"github.com/vango-dev/sprout/pkg/vdom"
)

// Frame is a rendered result together with the translation table of the
// patch that produced it. Translations map ids in Result to the ids the
// frontend actually holds.
type Frame[M any] struct {
	Result       *Result[M]
	Translations map[id.ID]id.ID
}

// Diff computes the patch from prev to next and the frame next becomes once
// that patch is applied. A nil prev yields the initial patch.
func Diff[M any](prev *Frame[M], next *Result[M]) (*Frame[M], *vdom.Patch) {
	var patch *vdom.Patch
	if prev == nil {
		patch = vdom.Initial(next)
	} else {
		patch = vdom.Diff(prev.Result, prev.Translations, next)
	}
	return &Frame[M]{Result: next, Translations: patch.Translations}, patch
}

// State routes frontend input against the frame the frontend has applied.
type State[M any] struct {
	frame   *Frame[M]
	current map[id.ID]id.ID // frontend id -> id in frame.Result
}

// NewState returns a State with nothing applied.
func NewState[M any]() *State[M] {
	return &State[M]{current: map[id.ID]id.ID{}}
}

// Apply makes f the frame input is routed against.
func (s *State[M]) Apply(f *Frame[M]) {
	current := make(map[id.ID]id.ID, len(f.Translations))
	for to, from := range f.Translations {
		current[from] = to
	}
	s.frame = f
	s.current = current
}

// Frame returns the applied frame, or nil.
func (s *State[M]) Frame() *Frame[M] { return s.frame }

// Translate maps an id received from the frontend to the applied frame's id.
func (s *State[M]) Translate(frontend id.ID) id.ID {
	if cur, ok := s.current[frontend]; ok {
		return cur
	}
	return frontend
}

// Listener finds the listener for an event the frontend reported.
func (s *State[M]) Listener(target id.ID, name string) (*node.Listener[M], bool) {
	if s.frame == nil {
		return nil, false
	}
	return s.frame.Result.Listener(node.ListenerKey{Target: s.Translate(target), Name: name})
}

// Subscriptions returns the subscribers of an event in the applied frame.
func (s *State[M]) Subscriptions(event id.ID) []*node.Subscription[M] {
	if s.frame == nil {
		return nil
	}
	return s.frame.Result.Subscriptions(event)
}

// RPC finds the RPC handler of an element the frontend addressed.
func (s *State[M]) RPC(target id.ID) (*node.RPC[M], bool) {
	if s.frame == nil {
		return nil, false
	}
	return s.frame.Result.RPC(s.Translate(target))
}
