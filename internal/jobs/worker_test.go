package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorker_EnqueueAsyncWaitsOnShutdown(t *testing.T) {
	w := NewWorker(2)

	var done int32
	for i := 0; i < 20; i++ {
		w.EnqueueAsync(func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}
	w.Shutdown()

	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
	stats := w.GetStats()
	assert.Equal(t, int64(20), stats.CompletedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)
}

func TestWorker_FailuresAndPanicsAreCounted(t *testing.T) {
	w := NewWorker(1)

	w.EnqueueAsync(func(ctx context.Context) error { return errors.New("boom") })
	w.EnqueueAsync(func(ctx context.Context) error { panic("kaboom") })
	w.EnqueueAsync(func(ctx context.Context) error { return nil })
	w.Shutdown()

	stats := w.GetStats()
	assert.Equal(t, int64(3), stats.CompletedJobs)
	assert.Equal(t, int64(2), stats.FailedJobs)
}

func TestWorker_ScheduleEveryImmediate(t *testing.T) {
	w := NewWorker(1)

	var runs int32
	w.ScheduleEveryImmediate(time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	w.Shutdown()
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestWorker_ShutdownCancelsContext(t *testing.T) {
	w := NewWorker(1)
	w.Shutdown()
	w.Shutdown()

	select {
	case <-w.Context().Done():
	default:
		t.Fatal("worker context should be cancelled after shutdown")
	}
}
