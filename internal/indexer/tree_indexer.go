package indexer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
	"github.com/steemit/hnspool/pkg/telemetry"
)

// TreeStats counts what happened to the nodes of one story tree
type TreeStats struct {
	Stories   int
	Persisted int
	Skipped   int
	Failed    int
}

func (s *TreeStats) add(o TreeStats) {
	s.Stories += o.Stories
	s.Persisted += o.Persisted
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// workItem is a pending child together with the node it hangs under
type workItem struct {
	externalID int64
	parent     models.ParentRef
}

// TreeIndexer ingests one story and its comment tree
type TreeIndexer struct {
	fetcher Fetcher
	items   ItemStore
	authors *AuthorIndexer
	opts    Options
	logger  *zap.Logger
}

// NewTreeIndexer creates a new tree indexer
func NewTreeIndexer(fetcher Fetcher, items ItemStore, authors *AuthorIndexer, opts Options, logger *zap.Logger) *TreeIndexer {
	return &TreeIndexer{
		fetcher: fetcher,
		items:   items,
		authors: authors,
		opts:    opts,
		logger:  logger,
	}
}

// IndexStory ingests the story with the given external ID and every comment
// reachable from it. An error means the story itself could not be ingested;
// failures below the story are counted in the stats and logged.
func (ti *TreeIndexer) IndexStory(ctx context.Context, storyID int64) (TreeStats, error) {
	return ti.indexStory(ctx, ti.logger, storyID)
}

func (ti *TreeIndexer) indexStory(ctx context.Context, logger *zap.Logger, storyID int64) (TreeStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "indexer.IndexStory")
	defer span.End()
	span.SetAttributes(attribute.Int64("hn.story_id", storyID))

	logger = logger.With(zap.Int64("story_id", storyID))

	var stats TreeStats
	stack, err := ti.indexRoot(ctx, logger, storyID, &stats)
	if err != nil {
		stats.Failed++
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	visited := map[int64]bool{storyID: true}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[next.externalID] {
			logger.Warn("Kid already visited in this tree", zap.Int64("external_id", next.externalID))
			stats.Skipped++
			continue
		}
		visited[next.externalID] = true

		stack = ti.indexComment(ctx, logger, next, stack, &stats)
	}

	span.SetAttributes(
		attribute.Int("hn.persisted", stats.Persisted),
		attribute.Int("hn.skipped", stats.Skipped),
		attribute.Int("hn.failed", stats.Failed),
	)
	return stats, nil
}

// indexRoot handles the story node and returns its children as the initial stack
func (ti *TreeIndexer) indexRoot(ctx context.Context, logger *zap.Logger, storyID int64, stats *TreeStats) ([]workItem, error) {
	exists, err := ti.items.Exists(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if exists {
		stats.Skipped++
		logger.Debug("Story already ingested")
		return ti.knownChildren(ctx, logger, storyID, nil, stats), nil
	}

	p, err := ti.fetcher.Item(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if field := p.MissingStoryField(); field != "" {
		return nil, &models.ValidationError{ExternalID: storyID, Kind: models.KindStory, Field: field}
	}

	authorID, err := ti.authors.Resolve(ctx, p.Author())
	if err != nil {
		return nil, err
	}

	id, err := ti.items.PersistStory(ctx, p, authorID)
	if err != nil {
		if models.IsDuplicate(err) {
			// Stored by a concurrent run; that run owns the subtree
			stats.Skipped++
			logger.Info("Story stored concurrently", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	stats.Stories++
	stats.Persisted++
	logger.Debug("Persisted story", zap.Int64("id", id), zap.Int("kids", len(p.Kids)))

	return ti.push(logger, nil, p.Kids, models.StoryParent(id), stats), nil
}

// indexComment handles one popped child and returns the stack with its kids pushed
func (ti *TreeIndexer) indexComment(ctx context.Context, logger *zap.Logger, w workItem, stack []workItem, stats *TreeStats) []workItem {
	log := logger.With(zap.Int64("external_id", w.externalID))

	exists, err := ti.items.Exists(ctx, w.externalID)
	if err != nil {
		stats.Failed++
		log.Error("Failed to check comment", zap.Error(err))
		return stack
	}
	if exists {
		stats.Skipped++
		log.Debug("Comment already ingested")
		return ti.knownChildren(ctx, log, w.externalID, stack, stats)
	}

	p, err := ti.fetcher.Item(ctx, w.externalID)
	if err != nil {
		stats.Failed++
		if errors.Is(err, hackernews.ErrItemNotFound) {
			log.Warn("Comment not found upstream")
		} else {
			log.Error("Failed to fetch comment", zap.Error(err))
		}
		return stack
	}
	if field := p.MissingCommentField(); field != "" {
		stats.Failed++
		log.Info("Skipping invalid comment",
			zap.Error(&models.ValidationError{ExternalID: w.externalID, Kind: models.KindComment, Field: field}))
		return stack
	}

	authorID, err := ti.authors.Resolve(ctx, p.Author())
	if err != nil {
		stats.Failed++
		log.Error("Failed to resolve comment author", zap.Error(err))
		return stack
	}

	id, err := ti.items.PersistComment(ctx, p, authorID, w.parent)
	if err != nil {
		if models.IsDuplicate(err) {
			stats.Skipped++
			log.Info("Comment stored concurrently")
			return stack
		}
		stats.Failed++
		log.Error("Failed to persist comment", zap.Error(err))
		return stack
	}

	stats.Persisted++
	log.Debug("Persisted comment", zap.Int64("id", id), zap.Int32("depth", w.parent.ChildDepth()))

	return ti.push(log, stack, p.Kids, models.CommentParent(id, w.parent.StoryID, w.parent.ChildDepth()), stats)
}

// knownChildren re-enters an already stored node through its stored kids when
// RetraverseKnown is set. The node itself is not fetched again.
func (ti *TreeIndexer) knownChildren(ctx context.Context, logger *zap.Logger, externalID int64, stack []workItem, stats *TreeStats) []workItem {
	if !ti.opts.RetraverseKnown {
		return stack
	}

	item, err := ti.items.GetByExternalID(ctx, externalID)
	if err != nil || item == nil {
		if err == nil {
			err = fmt.Errorf("item %d vanished", externalID)
		}
		logger.Warn("Failed to load known item", zap.Error(err))
		return stack
	}

	kids, err := item.KidIDs()
	if err != nil {
		logger.Warn("Stored kids unreadable", zap.Error(err))
		return stack
	}

	parent := models.StoryParent(item.ID)
	if !item.IsStory() {
		parent = models.CommentParent(item.ID, item.StoryID.Int64, item.Depth)
	}
	return ti.push(logger, stack, kids, parent, stats)
}

// push adds kids under parent in reverse so they pop in source order
func (ti *TreeIndexer) push(logger *zap.Logger, stack []workItem, kids []int64, parent models.ParentRef, stats *TreeStats) []workItem {
	if len(kids) == 0 {
		return stack
	}
	if parent.Depth >= math.MaxInt32 || (ti.opts.MaxDepth > 0 && int(parent.ChildDepth()) > ti.opts.MaxDepth) {
		stats.Skipped += len(kids)
		logger.Debug("Max depth reached, not descending", zap.Int("kids", len(kids)))
		return stack
	}
	for i := len(kids) - 1; i >= 0; i-- {
		stack = append(stack, workItem{externalID: kids[i], parent: parent})
	}
	return stack
}
