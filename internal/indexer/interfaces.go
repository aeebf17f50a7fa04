package indexer

import (
	"context"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
)

// Fetcher reads from the upstream API
type Fetcher interface {
	RootIDs(ctx context.Context) ([]int64, error)
	Item(ctx context.Context, id int64) (*hackernews.Payload, error)
}

// ItemStore persists stories and comments keyed by external ID
type ItemStore interface {
	Exists(ctx context.Context, externalID int64) (bool, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error)
	PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error)
	PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error)
}

// AuthorStore maps usernames to author IDs, creating them on first sight
type AuthorStore interface {
	EnsureID(ctx context.Context, username string) (int64, error)
}

// Runner executes one ingestion run under a caller-supplied run ID
type Runner interface {
	RunWithID(ctx context.Context, runID string, limit int) (*RunReport, error)
}
