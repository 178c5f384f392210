package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stagewatch/stagewatch/pkg/models"
)

// RunFunc executes one ingestion cycle.
type RunFunc func(ctx context.Context) (*models.ScrapeJob, error)

// Status reports the scheduler's current state.
type Status struct {
	InProgress     bool `json:"in_progress"`
	ScheduleActive bool `json:"schedule_active"`
}

// Scheduler owns the recurring ingestion loop. At most one run executes at a
// time system-wide: the inProgress flag is the sole serialization point, and
// triggers arriving while a run is in flight are skipped, not queued.
type Scheduler struct {
	run    RunFunc
	logger *slog.Logger

	mu         sync.Mutex
	inProgress bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func New(run RunFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{run: run, logger: logger}
}

// Start triggers one immediate run and then schedules recurring runs at the
// given interval. Calling Start while a schedule is active is a no-op.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.Trigger()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Trigger()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop cancels future scheduled runs. An in-flight run is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.mu.Unlock()

	// Waits out any in-flight run, including manual triggers.
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger starts a run unless one is already in progress, in which case it
// returns false immediately. Skipped triggers are lost, not deferred.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		s.logger.Info("run already in progress, skipping trigger")
		return false
	}
	s.inProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	// A run is never cancelled mid-flight; the background context reflects that.
	if _, err := s.run(context.Background()); err != nil {
		s.logger.Error("ingestion run could not be recorded", "error", err)
	}
	return true
}

// TriggerAsync starts a run on its own goroutine, returning false immediately
// if one is already in flight. Used by the on-demand HTTP trigger.
func (s *Scheduler) TriggerAsync() bool {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("ingestion run panicked", "panic", r)
			}
		}()
		s.Trigger()
	}()
	return true
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		InProgress:     s.inProgress,
		ScheduleActive: s.stopCh != nil,
	}
}
