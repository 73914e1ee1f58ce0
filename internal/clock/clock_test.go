package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryTicksUntilCancelled(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var calls atomic.Int32

	h := Every(context.Background(), fc, time.Second, func(time.Time) bool {
		calls.Add(1)
		return true
	})

	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	h.Cancel()
	stopped := calls.Load()
	fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())

	select {
	case <-h.Done():
	default:
		t.Fatal("handle not done after Cancel")
	}
}

func TestEveryStopsWhenCallbackDeclines(t *testing.T) {
	fc := clockwork.NewFakeClock()
	h := Every(context.Background(), fc, time.Second, func(time.Time) bool { return false })

	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		select {
		case <-h.Done():
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	h.Cancel()
	h.Cancel()
}

func TestEveryPassesClockTime(t *testing.T) {
	start := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	fc := clockwork.NewFakeClockAt(start)
	seen := make(chan time.Time, 16)

	h := Every(context.Background(), fc, time.Minute, func(now time.Time) bool {
		seen <- now
		return true
	})
	defer h.Cancel()

	var got time.Time
	require.Eventually(t, func() bool {
		fc.Advance(time.Minute)
		select {
		case got = <-seen:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, got.Before(start.Add(time.Minute)))
}

func TestEveryStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Every(ctx, clockwork.NewFakeClock(), time.Second, func(time.Time) bool { return true })
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle did not stop with its parent context")
	}
}

func TestFinishedHandle(t *testing.T) {
	h := Finished()
	h.Cancel()
	select {
	case <-h.Done():
	default:
		t.Fatal("finished handle should be done")
	}
}
