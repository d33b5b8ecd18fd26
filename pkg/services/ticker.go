package services

import (
	"context"
	"time"

	"github.com/vango-dev/sprout/pkg/service"
)

// Ticker emits the current time every Interval.
type Ticker struct {
	Interval time.Duration
}

var _ service.Service[time.Time] = Ticker{}

// Start implements service.Service.
func (t Ticker) Start(ctx context.Context, _ *service.Mailbox) <-chan time.Time {
	ch := make(chan time.Time)
	go func() {
		defer close(ch)
		tk := time.NewTicker(t.Interval)
		defer tk.Stop()
		for {
			select {
			case now := <-tk.C:
				select {
				case ch <- now:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
