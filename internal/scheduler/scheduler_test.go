package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stagewatch/stagewatch/internal/scheduler"
	"github.com/stagewatch/stagewatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopRun(_ context.Context) (*models.ScrapeJob, error) {
	return &models.ScrapeJob{}, nil
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		ran <- struct{}{}
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	s.Start(time.Hour)
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run immediately after Start")
	}
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		runs.Add(1)
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	s.Start(time.Hour)
	s.Start(time.Hour)
	s.Start(time.Hour)
	defer s.Stop()

	// Only the first Start schedules an immediate run.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_ScheduleActiveAfterStart(t *testing.T) {
	s := scheduler.New(noopRun, discardLogger())

	assert.False(t, s.Status().ScheduleActive)

	s.Start(time.Hour)
	assert.True(t, s.Status().ScheduleActive)

	s.Stop()
	assert.False(t, s.Status().ScheduleActive)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := scheduler.New(noopRun, discardLogger())
	s.Stop() // must not panic or block
}

func TestScheduler_RecurringRuns(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		runs.Add(1)
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	s.Start(20 * time.Millisecond)
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	// Immediate run plus several ticks.
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_SingleFlight(t *testing.T) {
	var concurrent atomic.Int32
	var peak atomic.Int32
	block := make(chan struct{})

	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		cur := concurrent.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		<-block
		concurrent.Add(-1)
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Trigger()
		}(i)
	}

	// Let the winner get into the run body, then release everyone.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load(), "run bodies must never overlap")

	executed := 0
	for _, r := range results {
		if r {
			executed++
		}
	}
	assert.GreaterOrEqual(t, executed, 1)
}

func TestScheduler_TriggerSkippedWhileRunning(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once

	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		startedOnce.Do(func() { close(started) })
		<-block
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	require.True(t, s.TriggerAsync())
	<-started

	assert.True(t, s.Status().InProgress)
	assert.False(t, s.TriggerAsync(), "trigger during an in-flight run is skipped")

	close(block)

	require.Eventually(t, func() bool {
		return !s.Status().InProgress
	}, 2*time.Second, 10*time.Millisecond)

	// Once the run finishes, triggers are accepted again.
	assert.True(t, s.Trigger())
}

func TestScheduler_StopDoesNotInterruptInFlightRun(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{})

	s := scheduler.New(func(_ context.Context) (*models.ScrapeJob, error) {
		close(started)
		<-block
		close(finished)
		return &models.ScrapeJob{}, nil
	}, discardLogger())

	require.True(t, s.TriggerAsync())
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	close(block)
	<-finished

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the in-flight run completed")
	}
}
