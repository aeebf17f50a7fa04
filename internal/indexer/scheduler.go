package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/logging"
)

// Scheduler triggers ingestion runs on a fixed interval
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	limit      int
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, limit int) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		limit:      limit,
		logger:     logging.WithComponent("scheduler"),
	}
}

// Run blocks until ctx is cancelled, starting a run every interval
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting scheduler",
		zap.Duration("interval", s.interval),
		zap.Bool("run_on_start", s.runOnStart))

	if s.runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runID := NewRunID()
	if _, err := s.runner.RunWithID(ctx, runID, s.limit); err != nil {
		s.logger.Error("Scheduled run failed", zap.String("run_id", runID), zap.Error(err))
	}
}
