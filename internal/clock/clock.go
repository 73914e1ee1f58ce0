// Package clock supplies the time source shared by the countdown and reminder engines and the
// cancellable handle both use for their recurring work.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the wall-clock source. Tests inject clockwork.NewFakeClock.
type Clock = clockwork.Clock

// Real returns the system clock.
func Real() Clock {
	return clockwork.NewRealClock()
}

// Handle owns one recurring task. Cancel must be called when the consumer goes away;
// a forgotten handle keeps firing against disposed state.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every calls fn with the clock's current time once per period until fn returns false, ctx is
// done, or the handle is cancelled. The ticker is created before Every returns, so a fake clock
// advanced right after the call already sees it.
func Every(ctx context.Context, clk Clock, period time.Duration, fn func(now time.Time) bool) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	ticker := clk.NewTicker(period)

	go func() {
		defer close(h.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if ctx.Err() != nil {
					return
				}
				if !fn(clk.Now()) {
					return
				}
			}
		}
	}()
	return h
}

// Cancel stops the task and waits for an in-flight call to finish. It is idempotent.
// Calling it from inside the task's own callback deadlocks; return false instead.
func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the task has stopped for any reason.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Finished returns a handle whose task has already stopped.
func Finished() *Handle {
	h := &Handle{cancel: func() {}, done: make(chan struct{})}
	close(h.done)
	return h
}
