// Package notify delivers fired reminders to the user: a live push to their open dashboards and
// a durable delivery job for the notification history.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/queue"
)

// EventReminderFired is the realtime event name of a fired reminder.
const EventReminderFired = "reminder_fired"

// Notification is one fired reminder addressed to a user.
type Notification struct {
	UserID         uuid.UUID `json:"user_id"`
	SessionID      string    `json:"session_id"`
	SessionTitle   string    `json:"session_title"`
	ScheduledStart time.Time `json:"scheduled_start"`
	FiredAt        time.Time `json:"fired_at"`
}

// FromReminder builds the notification for a fired reminder.
func FromReminder(userID uuid.UUID, r models.Reminder) Notification {
	n := Notification{
		UserID:         userID,
		SessionID:      r.SessionID,
		SessionTitle:   r.SessionTitle,
		ScheduledStart: r.ScheduledStart,
	}
	if r.FiredAt != nil {
		n.FiredAt = *r.FiredAt
	}
	return n
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// UserPublisher pushes an event to a user's connections.
type UserPublisher interface {
	PublishToUser(userID uuid.UUID, event string, payload interface{}) error
}

// HubSink pushes notifications to the user's open dashboards.
type HubSink struct {
	hub UserPublisher
}

// NewHubSink creates a realtime sink.
func NewHubSink(hub UserPublisher) *HubSink {
	return &HubSink{hub: hub}
}

// Notify implements Sink.
func (s *HubSink) Notify(_ context.Context, n Notification) error {
	if err := s.hub.PublishToUser(n.UserID, EventReminderFired, n); err != nil {
		return fmt.Errorf("push reminder: %w", err)
	}
	return nil
}

// Enqueuer hands a delivery to the background worker.
type Enqueuer interface {
	EnqueueReminderDelivery(ctx context.Context, payload queue.ReminderDeliveryPayload) (string, error)
}

// QueueSink enqueues notifications for the delivery worker, which records them.
type QueueSink struct {
	queue   Enqueuer
	timeout time.Duration
}

// NewQueueSink creates a queue sink. timeout bounds each enqueue.
func NewQueueSink(q Enqueuer, timeout time.Duration) *QueueSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &QueueSink{queue: q, timeout: timeout}
}

// Notify implements Sink.
func (s *QueueSink) Notify(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.queue.EnqueueReminderDelivery(ctx, queue.ReminderDeliveryPayload{
		UserID:         n.UserID,
		SessionID:      n.SessionID,
		SessionTitle:   n.SessionTitle,
		ScheduledStart: n.ScheduledStart,
		FiredAt:        n.FiredAt,
	})
	if err != nil {
		return fmt.Errorf("enqueue reminder delivery: %w", err)
	}
	return nil
}

// Fanout delivers to every sink. One failing sink does not stop the others.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout creates a sink that delivers to each of sinks in order.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Notify implements Sink.
func (f *Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FireFunc adapts sink to the reminder engine's fire callback for one user. Delivery errors are
// logged; the reminder stays fired.
func FireFunc(sink Sink, userID uuid.UUID, logger *zap.Logger) func(context.Context, models.Reminder) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, r models.Reminder) {
		n := FromReminder(userID, r)
		if err := sink.Notify(ctx, n); err != nil {
			logger.Warn("reminder delivery incomplete",
				zap.String("user_id", userID.String()), zap.String("session_id", r.SessionID), zap.Error(err))
			return
		}
		logger.Info("reminder delivered",
			zap.String("user_id", userID.String()), zap.String("session_id", r.SessionID), zap.Time("scheduled_start", r.ScheduledStart))
	}
}
