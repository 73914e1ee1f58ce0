package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/models"
)

// SessionLister supplies the sessions the engine checks reminders against.
type SessionLister interface {
	List(ctx context.Context) ([]models.ClassSession, error)
}

// EngineConfig wires one user's engine.
type EngineConfig struct {
	UserID       uuid.UUID
	Store        Store
	Sessions     SessionLister
	Fire         FireFunc
	Clock        clock.Clock
	TickInterval time.Duration
	StoreTimeout time.Duration
	Logger       *zap.Logger
}

// Engine is one user's reminder engine: durable store plus scheduler plus the recurring tick
// that drives it while the user's dashboard is open. Set and Remove work whether or not the
// engine is running; a stopped engine only writes the store and picks the change up on Start.
type Engine struct {
	userID   uuid.UUID
	store    Store
	sessions SessionLister
	sched    *Scheduler
	clk      clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	handle *clock.Handle
}

// NewEngine creates a stopped engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("user_id", cfg.UserID.String()))
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Engine{
		userID:   cfg.UserID,
		store:    cfg.Store,
		sessions: cfg.Sessions,
		sched:    NewScheduler(cfg.Store, cfg.Fire, clk, cfg.StoreTimeout, logger),
		clk:      clk,
		interval: interval,
		logger:   logger,
	}
}

// UserID returns the owner of the engine.
func (e *Engine) UserID() uuid.UUID { return e.userID }

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != nil
}

// Start rehydrates the scheduler from the store and starts the tick loop. Rehydration problems
// are logged; the engine always starts. Calling Start on a running engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle != nil {
		return
	}
	known := e.fetchSessions(ctx)
	if err := e.sched.Rehydrate(ctx, known); err != nil {
		e.logger.Warn("reminder rehydration incomplete", zap.Error(err))
	}
	e.handle = clock.Every(context.Background(), e.clk, e.interval, e.tick)
	e.logger.Info("reminder engine started", zap.Duration("interval", e.interval), zap.Int("pending", len(e.sched.Pending())))
}

// Stop cancels the tick loop and waits for an in-flight tick. A later Start rebuilds the
// pending set from the store.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return
	}
	e.handle.Cancel()
	e.handle = nil
	e.logger.Info("reminder engine stopped")
}

func (e *Engine) tick(now time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), e.interval)
	defer cancel()

	if known := e.fetchSessions(ctx); known != nil {
		if err := e.sched.Reconcile(ctx, known, now); err != nil {
			e.logger.Warn("reminder reconcile", zap.Error(err))
		}
	}
	fired, err := e.sched.Tick(ctx, now)
	if err != nil {
		e.logger.Warn("reminder tick", zap.Error(err))
	}
	if len(fired) > 0 {
		e.logger.Info("reminders fired", zap.Int("count", len(fired)))
	}
	return true
}

// Tick runs one tick at the given time; the loop started by Start calls the same code.
func (e *Engine) Tick(now time.Time) {
	e.tick(now)
}

func (e *Engine) fetchSessions(ctx context.Context) map[string]models.ClassSession {
	if e.sessions == nil {
		return nil
	}
	list, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Warn("list sessions for reminders", zap.Error(err))
		return nil
	}
	return Index(list)
}

// Set creates or replaces the reminder for session. A *ValidationError means nothing changed.
// A *StorageError means the reminder is scheduled in memory but will not survive a reload.
func (e *Engine) Set(ctx context.Context, session models.ClassSession, leadMinutes int) (models.Reminder, error) {
	r, err := NewReminder(session, leadMinutes, e.clk.Now())
	if err != nil {
		return models.Reminder{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.sched.Put(ctx, r, e.handle != nil); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return models.Reminder{}, err
		}
		e.logger.Warn("reminder not persisted", zap.String("session_id", r.SessionID), zap.Error(err))
		return r, err
	}
	return r, nil
}

// Remove cancels the reminder for sessionID. Removing a missing reminder is not an error.
func (e *Engine) Remove(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Forget(ctx, sessionID)
}

// List returns the user's reminders. When the store is unreadable it falls back to the
// pending set and returns the *StorageError alongside.
func (e *Engine) List(ctx context.Context) ([]models.Reminder, error) {
	list, err := e.store.LoadAll(ctx)
	if err != nil && list == nil {
		return e.sched.Pending(), asStorageError("load", "", err)
	}
	return list, err
}

// Pending returns the in-memory pending set.
func (e *Engine) Pending() []models.Reminder {
	return e.sched.Pending()
}
