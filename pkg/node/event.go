package node

import (
	"sync"

	"github.com/vango-dev/sprout/pkg/id"
)

// Emission is an emitted event waiting to be delivered to its subscribers.
type Emission struct {
	Event id.ID
	stage func(deliver func())
}

// Deliver runs deliver while the emitted data is visible to the
// subscriptions of the event. Subscriptions called outside Deliver see
// nothing.
func (e Emission) Deliver(deliver func()) {
	if e.stage != nil {
		e.stage(deliver)
	}
}

// Event is a cross-component event carrying data of type D. A component
// exposes it; others subscribe during render; the owner emits it through
// its update context. Events must come from NewEvent.
type Event[D any] struct {
	id   id.ID
	slot *slot[D]
}

// slot hands typed data from an emission to the subscriptions of the
// same event.
type slot[D any] struct {
	mu   sync.Mutex
	data D
	live bool
}

func (s *slot[D]) stage(data D, deliver func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data, s.live = data, true
	defer func() {
		var zero D
		s.data, s.live = zero, false
	}()
	deliver()
}

// NewEvent allocates an event.
func NewEvent[D any](ids *id.Allocator) Event[D] {
	return Event[D]{id: ids.Next(), slot: &slot[D]{}}
}

// ID returns the event identifier.
func (e Event[D]) ID() id.ID { return e.id }

// Emit packages data for delivery.
func (e Event[D]) Emit(data D) Emission {
	em := Emission{Event: e.id}
	if s := e.slot; s != nil {
		em.stage = func(deliver func()) { s.stage(data, deliver) }
	}
	return em
}

// Subscription maps an emission of one event to a message.
type Subscription[M any] struct {
	Event id.ID
	fn    func() (M, bool)
}

// Call converts the data of the emission being delivered. It reports false
// outside Emission.Deliver.
func (s *Subscription[M]) Call() (M, bool) {
	return s.fn()
}

// Subscribe creates a node that subscribes to e for as long as it stays in
// the rendered tree.
func Subscribe[D, M any](e Event[D], fn func(D) M) Node[M] {
	s := e.slot
	sub := &Subscription[M]{
		Event: e.id,
		fn: func() (M, bool) {
			if s == nil || !s.live {
				var zero M
				return zero, false
			}
			return fn(s.data), true
		},
	}
	return Node[M]{kind: KindSubscription, sub: sub}
}
