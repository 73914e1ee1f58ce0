package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/models"
)

// FireFunc delivers a fired reminder. It runs inside the scheduler's fire pass and must not
// call back into the scheduler.
type FireFunc func(ctx context.Context, r models.Reminder)

// Scheduler owns the pending reminders of one user and fires each exactly once when its
// trigger time is reached. mu guards the pending set only and is never held across a store
// call or a delivery, so Disarm and Pending never wait on the medium. A Disarm that gets mu
// before a fire pass wins; a started fire pass runs to completion. writeMu orders store
// writes, so a fire pass cannot overwrite a reminder set or removed after it.
type Scheduler struct {
	store        Store
	fire         FireFunc
	clk          clock.Clock
	storeTimeout time.Duration
	logger       *zap.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[string]*models.Reminder
}

// NewScheduler creates a scheduler persisting through store and delivering through fire.
// storeTimeout bounds the store writes of one pass.
func NewScheduler(store Store, fire FireFunc, clk clock.Clock, storeTimeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	return &Scheduler{
		store:        store,
		fire:         fire,
		clk:          clk,
		storeTimeout: storeTimeout,
		logger:       logger,
		pending:      make(map[string]*models.Reminder),
	}
}

// Arm adds or replaces the pending reminder for r.SessionID. A reminder whose trigger time has
// already passed fires immediately, once. Arm returns *ValidationError without touching the
// pending set, or *StorageError when a catch-up fire could not be persisted.
func (s *Scheduler) Arm(ctx context.Context, r models.Reminder) error {
	if err := armable(r); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.arm(ctx, r)
}

// Put saves r and, when arm is set, arms it, in one step relative to fire passes.
// *ValidationError means nothing changed; *StorageError means r is not durable.
func (s *Scheduler) Put(ctx context.Context, r models.Reminder, arm bool) error {
	if err := armable(r); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err := s.write(ctx, []models.Reminder{r}, nil)
	if arm {
		err = errors.Join(err, s.arm(ctx, r))
	}
	return err
}

// Forget disarms and removes the reminder for sessionID. Missing reminders are not an error.
func (s *Scheduler) Forget(ctx context.Context, sessionID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.Disarm(sessionID)
	return s.write(ctx, nil, []string{sessionID})
}

func armable(r models.Reminder) error {
	if err := Validate(r); err != nil {
		return err
	}
	if !r.Active {
		return &ValidationError{Field: "active", Reason: "reminder has already fired or been cancelled"}
	}
	return nil
}

// arm requires writeMu.
func (s *Scheduler) arm(ctx context.Context, r models.Reminder) error {
	now := s.clk.Now()
	s.mu.Lock()
	entry := r
	s.pending[r.SessionID] = &entry
	if !entry.Due(now) {
		s.mu.Unlock()
		s.logger.Debug("reminder armed", zap.String("session_id", entry.SessionID), zap.Time("trigger_at", entry.TriggerAt))
		return nil
	}
	fired := s.takeLocked(&entry, now)
	s.mu.Unlock()

	s.logger.Info("reminder catch-up fire", zap.String("session_id", fired.SessionID), zap.Time("trigger_at", fired.TriggerAt))
	return s.deliver(ctx, []models.Reminder{fired})
}

// Disarm drops the pending reminder for sessionID. It reports whether one was pending.
func (s *Scheduler) Disarm(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[sessionID]
	delete(s.pending, sessionID)
	return ok
}

// Tick fires every pending reminder due at now, in trigger order, and returns them. Fired
// reminders leave the pending set, so repeated or late ticks never fire one twice and a tick
// after a long pause still fires everything that came due meanwhile. Persistence failures are
// returned as joined *StorageError warnings; they never stop a fire.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	var due []*models.Reminder
	for _, r := range s.pending {
		if r.Due(now) {
			due = append(due, r)
		}
	}
	fired := make([]models.Reminder, 0, len(due))
	for _, r := range due {
		fired = append(fired, s.takeLocked(r, now))
	}
	s.mu.Unlock()

	SortByTrigger(fired)
	return fired, s.deliver(ctx, fired)
}

// takeLocked removes r from the pending set and marks it fired. Requires mu.
func (s *Scheduler) takeLocked(r *models.Reminder, now time.Time) models.Reminder {
	delete(s.pending, r.SessionID)
	firedAt := now.UTC()
	r.Active = false
	r.FiredAt = &firedAt
	return *r
}

// deliver hands fired reminders to the sink and persists them. Requires writeMu.
func (s *Scheduler) deliver(ctx context.Context, fired []models.Reminder) error {
	if len(fired) == 0 {
		return nil
	}
	if s.fire != nil {
		for _, r := range fired {
			s.fire(ctx, r)
		}
	}
	err := s.write(ctx, fired, nil)
	if err != nil {
		s.logger.Warn("fired reminders not persisted; they may fire again after a reload", zap.Error(err))
	}
	return err
}

// write applies removes then saves, all bounded by one storeTimeout. Requires writeMu.
func (s *Scheduler) write(ctx context.Context, saves []models.Reminder, removes []string) error {
	if len(saves) == 0 && len(removes) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var errs []error
	for _, id := range removes {
		if err := asStorageError("remove", id, s.store.Remove(ctx, id)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range saves {
		if err := asStorageError("save", r.SessionID, s.store.Save(ctx, r)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rehydrate rebuilds the pending set from the store. Reminders whose session is missing from
// known, or no longer scheduled, are orphans: they are removed from memory and store and never
// fire. Already-fired reminders stay stored but are not armed. Active ones follow their
// session's current start and are armed, so overdue ones catch up; one whose session moved to
// a start that has passed is cancelled instead. A nil known means the session set could not be
// fetched; orphan detection then waits for the next Reconcile. When the store cannot be read
// the in-memory set is kept, minus orphans.
func (s *Scheduler) Rehydrate(ctx context.Context, known map[string]models.ClassSession) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var errs []error
	list, loadErr := s.store.LoadAll(ctx)
	now := s.clk.Now()

	var saves []models.Reminder
	var removes []string
	s.mu.Lock()
	if loadErr != nil {
		errs = append(errs, asStorageError("load", "", loadErr))
	} else {
		s.pending = make(map[string]*models.Reminder, len(list))
	}
	if known != nil {
		for id, r := range s.pending {
			if orphaned(*r, known) {
				delete(s.pending, id)
				removes = append(removes, id)
			}
		}
	}
	s.mu.Unlock()

	var arm []models.Reminder
	for _, r := range list {
		if known != nil && orphaned(r, known) {
			s.logger.Info("dropping orphaned reminder", zap.String("session_id", r.SessionID))
			removes = append(removes, r.SessionID)
			continue
		}
		if !r.Active {
			continue
		}
		if known != nil {
			if moved, changed := retime(r, known[r.SessionID]); changed {
				if !moved.ScheduledStart.After(now) {
					moved.Active = false
					s.logger.Info("reminder cancelled; session moved to a start that has passed", zap.String("session_id", r.SessionID))
					saves = append(saves, moved)
					continue
				}
				r = moved
				saves = append(saves, r)
			}
		}
		if err := armable(r); err != nil {
			errs = append(errs, err)
			continue
		}
		arm = append(arm, r)
	}
	if err := s.write(ctx, saves, removes); err != nil {
		errs = append(errs, err)
	}
	for _, r := range arm {
		if err := s.arm(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconcile applies the current session set to the pending reminders: orphans are dropped from
// memory and store, and reminders whose session moved are re-timed, or cancelled when the new
// start is not after asOf. Reminders created after asOf are left alone because known may
// predate them.
func (s *Scheduler) Reconcile(ctx context.Context, known map[string]models.ClassSession, asOf time.Time) error {
	if known == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var saves []models.Reminder
	var removes []string
	s.mu.Lock()
	for id, r := range s.pending {
		if r.CreatedAt.After(asOf) {
			continue
		}
		if orphaned(*r, known) {
			delete(s.pending, id)
			s.logger.Info("dropping orphaned reminder", zap.String("session_id", id))
			removes = append(removes, id)
			continue
		}
		moved, changed := retime(*r, known[id])
		if !changed {
			continue
		}
		if !moved.ScheduledStart.After(asOf) {
			moved.Active = false
			delete(s.pending, id)
			s.logger.Info("reminder cancelled; session moved to a start that has passed", zap.String("session_id", id))
		} else {
			*r = moved
			s.logger.Info("reminder re-timed", zap.String("session_id", id), zap.Time("trigger_at", r.TriggerAt))
		}
		saves = append(saves, moved)
	}
	s.mu.Unlock()
	return s.write(ctx, saves, removes)
}

// Pending returns a copy of the pending reminders in trigger order.
func (s *Scheduler) Pending() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reminder, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, *r)
	}
	SortByTrigger(out)
	return out
}

func asStorageError(op, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, SessionID: sessionID, Err: err}
}
