package indexer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/models"
)

// AuthorIndexer resolves usernames to author IDs
type AuthorIndexer struct {
	store  AuthorStore
	logger *zap.Logger
}

// NewAuthorIndexer creates a new author indexer
func NewAuthorIndexer(store AuthorStore, logger *zap.Logger) *AuthorIndexer {
	return &AuthorIndexer{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the author ID for username, creating the author if absent
func (ai *AuthorIndexer) Resolve(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, &models.ValidationError{Kind: "author", Field: "username"}
	}

	id, err := ai.store.EnsureID(ctx, username)
	if err != nil {
		var pe *models.PersistError
		if !errors.As(err, &pe) {
			err = &models.PersistError{Op: "resolve_author", Err: err}
		}
		return 0, err
	}

	ai.logger.Debug("Resolved author", zap.String("username", username), zap.Int64("author_id", id))
	return id, nil
}
