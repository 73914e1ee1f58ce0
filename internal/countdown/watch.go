package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/aura-webinar/classroom/internal/clock"
)

// DefaultPeriod is the refresh period of a live countdown.
const DefaultPeriod = time.Second

// Watch emits a snapshot for target right away and then once per period until the countdown
// expires or the handle is cancelled. The expired snapshot is the last one emitted.
func Watch(ctx context.Context, clk clock.Clock, target time.Time, period time.Duration, fn func(Snapshot)) *clock.Handle {
	if period <= 0 {
		period = DefaultPeriod
	}
	first := Project(target, clk.Now())
	fn(first)
	if first.Expired {
		return clock.Finished()
	}
	return clock.Every(ctx, clk, period, func(now time.Time) bool {
		s := Project(target, now)
		fn(s)
		return !s.Expired
	})
}

// Watchers holds the live countdowns of one consumer, keyed by session id. Watching a key that
// is already watched restarts it; Close cancels everything.
type Watchers struct {
	ctx    context.Context
	clk    clock.Clock
	period time.Duration

	mu      sync.Mutex
	handles map[string]*clock.Handle
	closed  bool
}

// NewWatchers creates an empty set bound to ctx.
func NewWatchers(ctx context.Context, clk clock.Clock, period time.Duration) *Watchers {
	return &Watchers{ctx: ctx, clk: clk, period: period, handles: make(map[string]*clock.Handle)}
}

// Watch starts (or restarts) the countdown for key.
func (w *Watchers) Watch(key string, target time.Time, fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if h, ok := w.handles[key]; ok {
		h.Cancel()
	}
	w.handles[key] = Watch(w.ctx, w.clk, target, w.period, fn)
}

// Unwatch cancels the countdown for key. No-op if absent.
func (w *Watchers) Unwatch(key string) {
	w.mu.Lock()
	h, ok := w.handles[key]
	delete(w.handles, key)
	w.mu.Unlock()
	if ok {
		h.Cancel()
	}
}

// Len returns the number of countdowns that have not been unwatched.
func (w *Watchers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handles)
}

// Close cancels every countdown; later Watch calls are ignored.
func (w *Watchers) Close() {
	w.mu.Lock()
	handles := w.handles
	w.handles = make(map[string]*clock.Handle)
	w.closed = true
	w.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}
