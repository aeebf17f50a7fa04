package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"gorm.io/datatypes"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
)

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64 { return &i }

func story(id int64, by string, kids ...int64) *hackernews.Payload {
	return &hackernews.Payload{
		ID:    int64Ptr(id),
		Type:  strPtr("story"),
		By:    strPtr(by),
		Time:  int64Ptr(1175714200),
		Title: strPtr("My YC app: Dropbox"),
		URL:   strPtr("http://www.getdropbox.com/u/2/screencast.html"),
		Kids:  kids,
	}
}

func comment(id int64, by string, kids ...int64) *hackernews.Payload {
	return &hackernews.Payload{
		ID:   int64Ptr(id),
		Type: strPtr("comment"),
		By:   strPtr(by),
		Time: int64Ptr(1175714300),
		Text: strPtr("Aw shucks, guys"),
		Kids: kids,
	}
}

// fakeFetcher serves payloads from memory and records lookups in order
type fakeFetcher struct {
	mu       sync.Mutex
	roots    []int64
	rootsErr error
	items    map[int64]*hackernews.Payload
	errs     map[int64]error
	fetched  []int64
}

func newFakeFetcher(payloads ...*hackernews.Payload) *fakeFetcher {
	f := &fakeFetcher{
		items: make(map[int64]*hackernews.Payload),
		errs:  make(map[int64]error),
	}
	for _, p := range payloads {
		f.items[p.ExternalID()] = p
	}
	return f
}

func (f *fakeFetcher) payloads() []*hackernews.Payload {
	out := make([]*hackernews.Payload, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p)
	}
	return out
}

func (f *fakeFetcher) RootIDs(ctx context.Context) ([]int64, error) {
	if f.rootsErr != nil {
		return nil, f.rootsErr
	}
	return f.roots, nil
}

func (f *fakeFetcher) Item(ctx context.Context, id int64) (*hackernews.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	p, ok := f.items[id]
	if !ok {
		return nil, hackernews.ErrItemNotFound
	}
	return p, nil
}

// memStore is an ItemStore and AuthorStore backed by maps
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]*models.Item
	authors map[string]int64
	dupOn   map[int64]bool
	writes  int

	persistErr map[int64]error
	authorErr  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		items:   make(map[int64]*models.Item),
		authors: make(map[string]int64),
		dupOn:   make(map[int64]bool),

		persistErr: make(map[int64]error),
		authorErr:  make(map[string]error),
	}
}

func (m *memStore) EnsureID(ctx context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authorErr[username]; err != nil {
		return 0, err
	}
	if id, ok := m.authors[username]; ok {
		return id, nil
	}
	m.nextID++
	m.authors[username] = m.nextID
	return m.nextID, nil
}

func (m *memStore) Exists(ctx context.Context, externalID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[externalID]
	return ok, nil
}

func (m *memStore) GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[externalID], nil
}

func (m *memStore) PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error) {
	return m.persist(p, authorID, nil)
}

func (m *memStore) PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error) {
	return m.persist(p, authorID, &parent)
}

func (m *memStore) persist(p *hackernews.Payload, authorID int64, parent *models.ParentRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext := p.ExternalID()
	if err := m.persistErr[ext]; err != nil {
		return 0, &models.PersistError{Op: "persist", ExternalID: ext, Err: err}
	}
	if _, ok := m.items[ext]; ok || m.dupOn[ext] {
		return 0, &models.PersistError{Op: "persist", ExternalID: ext, Err: models.ErrDuplicate}
	}

	m.nextID++
	item := &models.Item{
		ID:         m.nextID,
		ExternalID: ext,
		Kind:       models.KindStory,
		AuthorID:   authorID,
	}
	if parent != nil {
		item.Kind = models.KindComment
		item.ParentID = sql.NullInt64{Int64: parent.ID, Valid: true}
		item.StoryID = sql.NullInt64{Int64: parent.StoryID, Valid: true}
		item.Depth = parent.ChildDepth()
	}
	if len(p.Kids) > 0 {
		kids, _ := json.Marshal(p.Kids)
		item.Kids = datatypes.JSON(kids)
	}
	m.items[ext] = item
	m.writes++
	return item.ID, nil
}

// fakeRunner records runs and optionally blocks until released
type fakeRunner struct {
	mu      sync.Mutex
	runs    []string
	limits  []int
	started chan string
	release chan struct{}
	err     error
}

func (r *fakeRunner) RunWithID(ctx context.Context, runID string, limit int) (*RunReport, error) {
	r.mu.Lock()
	r.runs = append(r.runs, runID)
	r.limits = append(r.limits, limit)
	r.mu.Unlock()

	if r.started != nil {
		select {
		case r.started <- runID:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &RunReport{RunID: runID, Limit: limit}, nil
}
