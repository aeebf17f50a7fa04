package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
	"github.com/steemit/hnspool/pkg/logging"
)

// ItemStore is the persistence surface KnownItems decorates
type ItemStore interface {
	Exists(ctx context.Context, externalID int64) (bool, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error)
	PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error)
	PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error)
}

// AuthorStore is the persistence surface KnownAuthors decorates
type AuthorStore interface {
	EnsureID(ctx context.Context, username string) (int64, error)
}

func itemKey(externalID int64) string {
	return "item:" + strconv.FormatInt(externalID, 10)
}

func authorKey(username string) string {
	return "author:" + username
}

// KnownItems short-circuits existence checks for external IDs already seen.
// The database stays authoritative: a cache miss or failure falls through to it.
type KnownItems struct {
	store  ItemStore
	cache  *Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewKnownItems wraps store with the cache. A nil cache yields a pass-through.
func NewKnownItems(store ItemStore, c *Cache, ttl time.Duration) *KnownItems {
	return &KnownItems{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logging.WithComponent("known_items"),
	}
}

// Exists checks the cache before the store
func (k *KnownItems) Exists(ctx context.Context, externalID int64) (bool, error) {
	if k.cache != nil {
		hit, err := k.cache.Exists(ctx, itemKey(externalID))
		if err == nil && hit {
			return true, nil
		}
		if err != nil {
			k.logger.Warn("Known item lookup failed", zap.Int64("external_id", externalID), zap.Error(err))
		}
	}

	exists, err := k.store.Exists(ctx, externalID)
	if err != nil {
		return false, err
	}
	if exists {
		k.remember(ctx, externalID)
	}
	return exists, nil
}

// GetByExternalID reads straight from the store
func (k *KnownItems) GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error) {
	return k.store.GetByExternalID(ctx, externalID)
}

// PersistStory persists and records the story as known
func (k *KnownItems) PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error) {
	id, err := k.store.PersistStory(ctx, p, authorID)
	k.afterPersist(ctx, p.ExternalID(), err)
	return id, err
}

// PersistComment persists and records the comment as known
func (k *KnownItems) PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error) {
	id, err := k.store.PersistComment(ctx, p, authorID, parent)
	k.afterPersist(ctx, p.ExternalID(), err)
	return id, err
}

func (k *KnownItems) afterPersist(ctx context.Context, externalID int64, err error) {
	if err == nil || models.IsDuplicate(err) {
		k.remember(ctx, externalID)
	}
}

func (k *KnownItems) remember(ctx context.Context, externalID int64) {
	if k.cache == nil {
		return
	}
	if err := k.cache.Set(ctx, itemKey(externalID), 1, k.ttl); err != nil {
		k.logger.Warn("Failed to cache known item", zap.Int64("external_id", externalID), zap.Error(err))
	}
}

// KnownAuthors caches username to author ID resolutions
type KnownAuthors struct {
	store  AuthorStore
	cache  *Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewKnownAuthors wraps store with the cache. A nil cache yields a pass-through.
func NewKnownAuthors(store AuthorStore, c *Cache, ttl time.Duration) *KnownAuthors {
	return &KnownAuthors{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logging.WithComponent("known_authors"),
	}
}

// EnsureID returns the cached author ID or resolves it through the store
func (k *KnownAuthors) EnsureID(ctx context.Context, username string) (int64, error) {
	if k.cache != nil {
		val, err := k.cache.Get(ctx, authorKey(username))
		switch {
		case err == nil:
			if id, perr := strconv.ParseInt(val, 10, 64); perr == nil && id > 0 {
				return id, nil
			}
		case !errors.Is(err, ErrMiss):
			k.logger.Warn("Author cache lookup failed", zap.String("username", username), zap.Error(err))
		}
	}

	id, err := k.store.EnsureID(ctx, username)
	if err != nil {
		return 0, err
	}

	if k.cache != nil {
		if err := k.cache.Set(ctx, authorKey(username), id, k.ttl); err != nil {
			k.logger.Warn("Failed to cache author", zap.String("username", username), zap.Error(err))
		}
	}
	return id, nil
}
