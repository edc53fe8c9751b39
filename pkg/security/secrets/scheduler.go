package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is the part of Manager the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshScheduler periodically clears cached secrets so that keys rotated
// in the backend (env reload, secret volume update without inotify) take
// effect without a restart.
type RefreshScheduler struct {
	target   Refresher
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewRefreshScheduler creates a scheduler for the given cron expression.
// Both five-field expressions and descriptors such as "@every 5m" are accepted.
func NewRefreshScheduler(target Refresher, schedule string) *RefreshScheduler {
	return &RefreshScheduler{
		target:   target,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "secrets.scheduler"),
	}
}

// Start registers the refresh job and starts the cron runner. An empty
// schedule is a no-op. The scheduler stops when ctx is cancelled.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		return nil
	}
	if s.running {
		return fmt.Errorf("refresh scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runRefresh(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("secret refresh scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *RefreshScheduler) runRefresh(ctx context.Context) {
	if err := s.target.Refresh(ctx); err != nil {
		s.logger.Error("scheduled secret refresh failed", "error", err)
		return
	}
	s.logger.Debug("secrets refreshed")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("secret refresh scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *RefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled refresh, or nil when not scheduled.
func (s *RefreshScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
