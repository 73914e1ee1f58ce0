package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/pkg/queue"
)

type memRecorder struct {
	mu    sync.Mutex
	byJob map[string]models.ReminderDelivery
	err   error
	calls int
}

func newMemRecorder() *memRecorder {
	return &memRecorder{byJob: map[string]models.ReminderDelivery{}}
}

func (m *memRecorder) Insert(_ context.Context, d *models.ReminderDelivery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.byJob[d.JobID]; ok {
		return false, nil
	}
	m.byJob[d.JobID] = *d
	return true, nil
}

func (m *memRecorder) snapshot() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byJob), m.calls
}

func newQueue(t *testing.T) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.NewQueue(client, nil), mr
}

func payload() queue.ReminderDeliveryPayload {
	start := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	return queue.ReminderDeliveryPayload{
		UserID:         uuid.New(),
		SessionID:      "s1",
		SessionTitle:   "Algebra",
		ScheduledStart: start,
		FiredAt:        start.Add(-15 * time.Minute),
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	q, _ := newQueue(t)
	rec := newMemRecorder()
	p := NewReminderDeliveryProcessor(rec, q, nil)
	ctx := context.Background()

	_, err := q.EnqueueReminderDelivery(ctx, payload())
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, p.Process(ctx, job))
	require.NoError(t, p.Process(ctx, job))

	stored, calls := rec.snapshot()
	assert.Equal(t, 1, stored)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Algebra", rec.byJob[job.ID].SessionTitle)
}

func TestProcessRejectsBadJobs(t *testing.T) {
	p := NewReminderDeliveryProcessor(newMemRecorder(), nil, nil)
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, &queue.Job{ID: "1", Type: "other"}))
	assert.Error(t, p.Process(ctx, &queue.Job{ID: "2", Type: queue.JobTypeReminderDelivery, Payload: []byte("{")}))
	assert.Error(t, p.Process(ctx, &queue.Job{ID: "3", Type: queue.JobTypeReminderDelivery, Payload: []byte(`{"session_title":"x"}`)}))
}

func TestRunRecordsQueuedDeliveries(t *testing.T) {
	q, _ := newQueue(t)
	rec := newMemRecorder()
	p := NewReminderDeliveryProcessor(rec, q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		_, err := q.EnqueueReminderDelivery(context.Background(), payload())
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		stored, _ := rec.snapshot()
		return stored == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunMovesFailingJobToDLQ(t *testing.T) {
	q, mr := newQueue(t)
	rec := newMemRecorder()
	rec.err = errors.New("db down")
	p := NewReminderDeliveryProcessor(rec, q, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	_, err := q.EnqueueReminderDelivery(context.Background(), payload())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if !mr.Exists(queue.QueueDLQ) {
			return false
		}
		list, err := mr.List(queue.QueueDLQ)
		return err == nil && len(list) == 1
	}, 5*time.Second, 10*time.Millisecond)

	_, calls := rec.snapshot()
	assert.Equal(t, queue.MaxRetries, calls)
}
