package reminders

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds the engine of a user.
type Factory func(userID uuid.UUID) *Engine

// Registry holds one engine per user and runs it while at least one dashboard view of that
// user is attached (thread-safe). Engines with no attached view are dropped; the store keeps
// their reminders and the next engine rehydrates from it.
type Registry struct {
	factory Factory
	logger  *zap.Logger

	mu      sync.Mutex
	engines map[uuid.UUID]*registryEntry
}

type registryEntry struct {
	engine *Engine
	views  int
	// transition serializes Start, Stop, eviction and Use so they always follow the latest
	// view count
	transition sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{factory: factory, logger: logger, engines: make(map[uuid.UUID]*registryEntry)}
}

func (reg *Registry) entry(userID uuid.UUID) *registryEntry {
	e := reg.engines[userID]
	if e == nil {
		e = &registryEntry{engine: reg.factory(userID)}
		reg.engines[userID] = e
	}
	return e
}

// Use runs fn with the user's engine, creating a stopped one if needed. The engine is not
// started, stopped or dropped while fn runs.
func (reg *Registry) Use(userID uuid.UUID, fn func(*Engine)) {
	for {
		reg.mu.Lock()
		e := reg.entry(userID)
		reg.mu.Unlock()

		e.transition.Lock()
		reg.mu.Lock()
		current := reg.engines[userID] == e
		reg.mu.Unlock()
		if current {
			fn(e.engine)
			reg.evictIdle(userID, e)
			e.transition.Unlock()
			return
		}
		// dropped between lookup and lock; take the new one
		e.transition.Unlock()
	}
}

// Attach registers a dashboard view for userID and starts the engine on the first one. The
// returned release func detaches the view; the last release stops and drops the engine.
// Release is idempotent.
func (reg *Registry) Attach(ctx context.Context, userID uuid.UUID) (*Engine, func()) {
	reg.mu.Lock()
	e := reg.entry(userID)
	e.views++
	reg.mu.Unlock()
	reg.settle(ctx, userID, e)

	var once sync.Once
	release := func() {
		once.Do(func() {
			reg.mu.Lock()
			e.views--
			reg.mu.Unlock()
			reg.settle(context.Background(), userID, e)
		})
	}
	return e.engine, release
}

// settle starts or stops the engine to match the current view count.
func (reg *Registry) settle(ctx context.Context, userID uuid.UUID, e *registryEntry) {
	e.transition.Lock()
	defer e.transition.Unlock()
	reg.mu.Lock()
	attached := e.views > 0
	reg.mu.Unlock()

	switch running := e.engine.Running(); {
	case attached && !running:
		e.engine.Start(ctx)
	case !attached && running:
		e.engine.Stop()
	}
	reg.evictIdle(userID, e)
}

// evictIdle drops e when no view is attached. Requires e.transition.
func (reg *Registry) evictIdle(userID uuid.UUID, e *registryEntry) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e.views == 0 && reg.engines[userID] == e {
		delete(reg.engines, userID)
	}
}

// Views returns the number of attached views for userID.
func (reg *Registry) Views(userID uuid.UUID) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if e := reg.engines[userID]; e != nil {
		return e.views
	}
	return 0
}

// Len returns the number of registered engines.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.engines)
}

// Shutdown stops every running engine.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	entries := make([]*registryEntry, 0, len(reg.engines))
	for _, e := range reg.engines {
		entries = append(entries, e)
	}
	reg.mu.Unlock()
	for _, e := range entries {
		e.engine.Stop()
	}
	reg.logger.Info("reminder engines stopped", zap.Int("count", len(entries)))
}
