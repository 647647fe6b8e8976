// Package scheduler runs the service's periodic jobs: sweeping idle views
// and publishing weather snapshots.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper discards expired state and reports how much it removed.
type Sweeper interface {
	Sweep() int
}

// SnapshotRunner produces and publishes one snapshot.
type SnapshotRunner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler wraps a gocron scheduler. Jobs run in singleton mode so a slow
// run is never overlapped by the next one.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	logger    *slog.Logger
}

// New creates a Scheduler whose jobs derive their context from ctx.
func New(ctx context.Context, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ctx:       ctx,
		logger:    logger,
	}
}

// AddViewSweep removes idle views every interval.
func (s *Scheduler) AddViewSweep(sw Sweeper, interval time.Duration) error {
	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		if n := sw.Sweep(); n > 0 {
			s.logger.Debug("view sweep complete", "removed", n)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule view sweep: %w", err)
	}
	return nil
}

// AddSnapshots publishes a snapshot every interval. Each run is bounded by
// the interval so a stuck broker cannot pile up runs.
func (s *Scheduler) AddSnapshots(r SnapshotRunner, interval time.Duration) error {
	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, interval)
		defer cancel()

		s.logger.Debug("running snapshot job")
		if err := r.RunOnce(ctx); err != nil && s.ctx.Err() == nil {
			s.logger.Error("snapshot job failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule snapshots: %w", err)
	}
	return nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

// Start runs the jobs in the background. Each job runs once immediately.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "jobs", s.scheduler.Len())
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}
