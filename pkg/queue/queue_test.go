package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueReminderDelivery(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	payload := ReminderDeliveryPayload{
		UserID:         uuid.New(),
		SessionID:      "s1",
		SessionTitle:   "Intro to Go",
		ScheduledStart: start,
		FiredAt:        start.Add(-15 * time.Minute),
	}

	id, err := q.EnqueueReminderDelivery(ctx, payload)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeReminderDelivery, job.Type)

	var got ReminderDeliveryPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload.SessionID, got.SessionID)
	assert.True(t, payload.ScheduledStart.Equal(got.ScheduledStart))
}

func TestDequeueSkipsGarbage(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(QueueReminders, "not-json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetryMovesToDLQAfterMaxRetries(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "j1", Type: JobTypeReminderDelivery, Payload: json.RawMessage(`{}`)}

	for i := 0; i < MaxRetries-1; i++ {
		require.NoError(t, q.Retry(ctx, job))
	}
	list, err := mr.List(QueueReminders)
	require.NoError(t, err)
	assert.Len(t, list, MaxRetries-1)

	require.NoError(t, q.Retry(ctx, job))
	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	assert.Equal(t, MaxRetries, job.Attempt)
}
