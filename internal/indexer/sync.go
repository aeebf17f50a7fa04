package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/logging"
	"github.com/steemit/hnspool/pkg/telemetry"
)

// RunReport summarises one ingestion run
type RunReport struct {
	RunID           string        `json:"run_id"`
	Limit           int           `json:"limit"`
	Roots           int           `json:"roots"`
	RootsFailed     int           `json:"roots_failed"`
	StoriesIngested int           `json:"stories_ingested"`
	Persisted       int           `json:"persisted"`
	Skipped         int           `json:"skipped"`
	Failed          int           `json:"failed"`
	Duration        time.Duration `json:"duration"`
}

// Sync drives ingestion runs over the upstream root list
type Sync struct {
	fetcher Fetcher
	tree    *TreeIndexer
	opts    Options
	metrics *runMetrics
	logger  *zap.Logger
}

// NewSync creates a new sync manager
func NewSync(fetcher Fetcher, items ItemStore, authors AuthorStore, opts Options) *Sync {
	logger := logging.WithComponent("indexer")
	return &Sync{
		fetcher: fetcher,
		tree:    NewTreeIndexer(fetcher, items, NewAuthorIndexer(authors, logger), opts, logger),
		opts:    opts,
		metrics: newRunMetrics(logger),
		logger:  logger,
	}
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// Run executes one ingestion run over at most limit root stories.
// limit <= 0 uses the configured default.
func (s *Sync) Run(ctx context.Context, limit int) (*RunReport, error) {
	return s.RunWithID(ctx, NewRunID(), limit)
}

// RunWithID executes one ingestion run tagged with runID
func (s *Sync) RunWithID(ctx context.Context, runID string, limit int) (*RunReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.Run")
	defer span.End()

	start := time.Now()
	logger := logging.WithRun(s.logger, runID)
	report := &RunReport{RunID: runID, Limit: s.opts.Limit(limit)}

	ids, err := s.fetcher.RootIDs(ctx)
	if err != nil {
		report.Duration = time.Since(start)
		s.metrics.record(ctx, report, err)
		logger.Error("Failed to fetch root IDs", zap.Error(err))
		return report, fmt.Errorf("fetch root ids: %w", err)
	}
	if len(ids) > report.Limit {
		ids = ids[:report.Limit]
	}
	report.Roots = len(ids)

	logger.Info("Starting ingestion run", zap.Int("limit", report.Limit), zap.Int("roots", len(ids)))

	var total TreeStats
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			logger.Warn("Run cancelled", zap.Error(err))
			s.finish(ctx, logger, report, total, start, err)
			return report, err
		}

		stats, err := s.tree.indexStory(ctx, logger, id)
		total.add(stats)
		if err != nil {
			report.RootsFailed++
			logger.Error("Failed to ingest story", zap.Int64("story_id", id), zap.Error(err))
		}
	}

	s.finish(ctx, logger, report, total, start, nil)
	return report, nil
}

func (s *Sync) finish(ctx context.Context, logger *zap.Logger, report *RunReport, total TreeStats, start time.Time, err error) {
	report.StoriesIngested = total.Stories
	report.Persisted = total.Persisted
	report.Skipped = total.Skipped
	report.Failed = total.Failed
	report.Duration = time.Since(start)

	s.metrics.record(ctx, report, err)

	logger.Info("Ingestion run finished",
		zap.Int("stories", report.StoriesIngested),
		zap.Int("persisted", report.Persisted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("roots_failed", report.RootsFailed),
		zap.Duration("duration", report.Duration))
}
