package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
	"github.com/steemit/hnspool/pkg/config"
)

type stubItems struct {
	existing map[int64]bool
	exists   int
	persist  error
}

func (s *stubItems) Exists(ctx context.Context, externalID int64) (bool, error) {
	s.exists++
	return s.existing[externalID], nil
}

func (s *stubItems) GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error) {
	return nil, nil
}

func (s *stubItems) PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error) {
	return 1, s.persist
}

func (s *stubItems) PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error) {
	return 2, s.persist
}

type stubAuthors struct {
	calls int
}

func (s *stubAuthors) EnsureID(ctx context.Context, username string) (int64, error) {
	s.calls++
	return 42, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(&config.RedisConfig{URL: "redis://" + mr.Addr(), Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func payload(id int64) *hackernews.Payload {
	return &hackernews.Payload{ID: &id}
}

func TestNamespaceKey(t *testing.T) {
	var c *Cache
	if got := c.namespaceKey(itemKey(8863)); got != "hnspool:item:8863" {
		t.Errorf("namespaceKey() = %s", got)
	}
	if got := c.namespaceKey(authorKey("pg")); got != "hnspool:author:pg" {
		t.Errorf("namespaceKey() = %s", got)
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	if _, err := c.Get(ctx, "k"); err != ErrCacheDisabled {
		t.Errorf("Get() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Set(ctx, "k", 1, time.Minute); err != ErrCacheDisabled {
		t.Errorf("Set() error = %v, want ErrCacheDisabled", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	disabled, err := New(&config.RedisConfig{})
	if err != nil || disabled != nil {
		t.Errorf("New(disabled) = %v, %v; want nil, nil", disabled, err)
	}
}

func TestKnownItems_PassThroughWithoutCache(t *testing.T) {
	store := &stubItems{existing: map[int64]bool{1: true}}
	k := NewKnownItems(store, nil, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := k.Exists(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("Exists(1) = %v, %v", ok, err)
		}
	}
	if store.exists != 2 {
		t.Errorf("store consulted %d times, want 2", store.exists)
	}
}

func TestKnownItems_Cached(t *testing.T) {
	c, mr := newTestCache(t)
	store := &stubItems{existing: map[int64]bool{1: true}}
	k := NewKnownItems(store, c, time.Hour)
	ctx := context.Background()

	if ok, _ := k.Exists(ctx, 1); !ok {
		t.Fatal("Exists(1) = false")
	}
	if ok, _ := k.Exists(ctx, 1); !ok {
		t.Fatal("Exists(1) = false on second call")
	}
	if store.exists != 1 {
		t.Errorf("store consulted %d times, want 1", store.exists)
	}
	if !mr.Exists("hnspool:item:1") {
		t.Error("expected hnspool:item:1 in redis")
	}

	if ok, _ := k.Exists(ctx, 2); ok {
		t.Error("Exists(2) = true for unknown item")
	}
	if _, err := k.PersistStory(ctx, payload(2), 42); err != nil {
		t.Fatalf("PersistStory() error = %v", err)
	}
	if !mr.Exists("hnspool:item:2") {
		t.Error("expected persisted item to be cached")
	}

	store.persist = &models.PersistError{Op: "insert", ExternalID: 3, Err: models.ErrDuplicate}
	if _, err := k.PersistComment(ctx, payload(3), 42, models.StoryParent(1)); !models.IsDuplicate(err) {
		t.Fatalf("PersistComment() error = %v, want duplicate", err)
	}
	if !mr.Exists("hnspool:item:3") {
		t.Error("expected duplicate item to be cached")
	}

	mr.FastForward(2 * time.Hour)
	if mr.Exists("hnspool:item:1") {
		t.Error("expected known item to expire")
	}
}

func TestKnownAuthors(t *testing.T) {
	c, mr := newTestCache(t)
	store := &stubAuthors{}
	k := NewKnownAuthors(store, c, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := k.EnsureID(ctx, "pg")
		if err != nil || id != 42 {
			t.Fatalf("EnsureID() = %d, %v", id, err)
		}
	}
	if store.calls != 1 {
		t.Errorf("store consulted %d times, want 1", store.calls)
	}

	mr.Close()
	id, err := k.EnsureID(ctx, "dang")
	if err != nil || id != 42 {
		t.Fatalf("EnsureID() with redis down = %d, %v", id, err)
	}
}
