package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/queue"
)

// dequeueTimeout bounds one blocking pop so shutdown is noticed.
const dequeueTimeout = 5 * time.Second

// Recorder persists delivered reminders.
type Recorder interface {
	Insert(ctx context.Context, d *models.ReminderDelivery) (bool, error)
}

// ReminderDeliveryProcessor records fired reminders handed off by the reminder engines.
type ReminderDeliveryProcessor struct {
	recorder Recorder
	queue    *queue.Queue
	backoff  time.Duration
	logger   *zap.Logger
}

// NewReminderDeliveryProcessor creates a reminder delivery processor.
func NewReminderDeliveryProcessor(recorder Recorder, q *queue.Queue, logger *zap.Logger) *ReminderDeliveryProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderDeliveryProcessor{recorder: recorder, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one reminder delivery job. Processing a job twice records it once.
func (p *ReminderDeliveryProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReminderDelivery {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReminderDeliveryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.SessionID == "" {
		return fmt.Errorf("job %s: missing session id", job.ID)
	}

	inserted, err := p.recorder.Insert(ctx, &models.ReminderDelivery{
		JobID:          job.ID,
		UserID:         payload.UserID,
		SessionID:      payload.SessionID,
		SessionTitle:   payload.SessionTitle,
		ScheduledStart: payload.ScheduledStart,
		FiredAt:        payload.FiredAt,
	})
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	if !inserted {
		p.logger.Info("reminder delivery already recorded", zap.String("job_id", job.ID))
		return nil
	}
	p.logger.Info("reminder delivery recorded",
		zap.String("job_id", job.ID),
		zap.String("user_id", payload.UserID.String()),
		zap.String("session_id", payload.SessionID),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *ReminderDeliveryProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reminder delivery worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ReminderDeliveryProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
