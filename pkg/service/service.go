// Package service runs long-lived agents that talk to the frontend through
// a mailbox and feed data back into the application's update cycle.
package service

import (
	"context"

	"github.com/vango-dev/sprout/pkg/id"
)

// Service produces D items once started. The returned channel is drained
// until it is closed or the context is canceled. Implementations talk to
// their frontend half through mb.
type Service[D any] interface {
	Start(ctx context.Context, mb *Mailbox) <-chan D
}

// Func adapts a plain function to Service.
type Func[D any] func(ctx context.Context, mb *Mailbox) <-chan D

func (f Func[D]) Start(ctx context.Context, mb *Mailbox) <-chan D { return f(ctx, mb) }

// Subscription is a service bound to a mapping into application messages,
// ready to be spawned by a Collection.
type Subscription[M any] struct {
	id  id.ID
	run func(ctx context.Context, mb *Mailbox, emit func(M))
}

// Subscribe binds svc to fn. The subscription gets a fresh id from ids.
func Subscribe[D, M any](ids *id.Allocator, svc Service[D], fn func(D) M) *Subscription[M] {
	return &Subscription[M]{
		id: ids.Next(),
		run: func(ctx context.Context, mb *Mailbox, emit func(M)) {
			items := svc.Start(ctx, mb)
			for {
				select {
				case d, ok := <-items:
					if !ok {
						return
					}
					emit(fn(d))
				case <-ctx.Done():
					return
				}
			}
		},
	}
}

// ID returns the subscription's service id.
func (s *Subscription[M]) ID() id.ID { return s.id }

// Map converts the messages of s with fn, keeping its id.
func Map[T, M any](s *Subscription[T], fn func(T) M) *Subscription[M] {
	return &Subscription[M]{
		id: s.id,
		run: func(ctx context.Context, mb *Mailbox, emit func(M)) {
			s.run(ctx, mb, func(t T) { emit(fn(t)) })
		},
	}
}
