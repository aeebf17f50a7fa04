package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/hnspool/internal/hackernews"
	"github.com/steemit/hnspool/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AuthorRepository provides author-related database operations
type AuthorRepository struct {
	*Repository
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(repo *Repository) *AuthorRepository {
	return &AuthorRepository{Repository: repo}
}

// EnsureID inserts the username if absent and returns its ID.
// The insert is a no-op on conflict, so concurrent callers converge on one row.
func (r *AuthorRepository) EnsureID(ctx context.Context, username string) (int64, error) {
	author := &models.Author{Username: username, CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).
		Create(author).Error
	if err != nil {
		return 0, &models.PersistError{Op: "resolve_author", Err: err}
	}

	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return 0, &models.PersistError{Op: "resolve_author", Err: err}
	}
	if existing == nil {
		return 0, &models.PersistError{Op: "resolve_author", Err: fmt.Errorf("author %q missing after insert", username)}
	}
	return existing.ID, nil
}

// GetByUsername retrieves an author by username
func (r *AuthorRepository) GetByUsername(ctx context.Context, username string) (*models.Author, error) {
	var author models.Author
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &author, nil
}

// Count returns the number of stored authors
func (r *AuthorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Author{}).Count(&count).Error
	return count, err
}

// ItemRepository provides item-related database operations
type ItemRepository struct {
	*Repository
}

// NewItemRepository creates a new item repository
func NewItemRepository(repo *Repository) *ItemRepository {
	return &ItemRepository{Repository: repo}
}

// Exists reports whether an item with the external ID is stored
func (r *ItemRepository) Exists(ctx context.Context, externalID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("external_id = ?", externalID).
		Count(&count).Error
	if err != nil {
		return false, &models.PersistError{Op: "exists", ExternalID: externalID, Err: err}
	}
	return count > 0, nil
}

// GetByExternalID retrieves an item by its upstream ID
func (r *ItemRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// CountByKind returns the number of stored items of a kind
func (r *ItemRepository) CountByKind(ctx context.Context, kind string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Item{}).Where("kind = ?", kind).Count(&count).Error
	return count, err
}

// PersistStory stores a validated story and returns its internal ID
func (r *ItemRepository) PersistStory(ctx context.Context, p *hackernews.Payload, authorID int64) (int64, error) {
	if field := p.MissingStoryField(); field != "" {
		return 0, &models.ValidationError{ExternalID: p.ExternalID(), Kind: models.KindStory, Field: field}
	}

	item := newItem(p, authorID)
	item.Kind = models.KindStory
	item.Title = p.TitleText()
	item.URL = p.Link()
	item.Descendants = p.DescendantCount()

	return r.insert(ctx, "persist_story", item)
}

// PersistComment stores a validated comment under parent and returns its internal ID
func (r *ItemRepository) PersistComment(ctx context.Context, p *hackernews.Payload, authorID int64, parent models.ParentRef) (int64, error) {
	if field := p.MissingCommentField(); field != "" {
		return 0, &models.ValidationError{ExternalID: p.ExternalID(), Kind: models.KindComment, Field: field}
	}
	if parent.ID == 0 || parent.StoryID == 0 {
		return 0, &models.PersistError{Op: "persist_comment", ExternalID: p.ExternalID(), Err: errors.New("parent not persisted")}
	}

	item := newItem(p, authorID)
	item.Kind = models.KindComment
	item.Text = p.Body()
	item.ParentID = sql.NullInt64{Int64: parent.ID, Valid: true}
	item.StoryID = sql.NullInt64{Int64: parent.StoryID, Valid: true}
	item.Depth = parent.ChildDepth()

	return r.insert(ctx, "persist_comment", item)
}

func (r *ItemRepository) insert(ctx context.Context, op string, item *models.Item) (int64, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(item)
	if result.Error != nil {
		return 0, &models.PersistError{Op: op, ExternalID: item.ExternalID, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		// Another run stored it between our existence check and this insert
		return 0, &models.PersistError{Op: op, ExternalID: item.ExternalID, Err: models.ErrDuplicate}
	}
	return item.ID, nil
}

func newItem(p *hackernews.Payload, authorID int64) *models.Item {
	item := &models.Item{
		ExternalID: p.ExternalID(),
		Type:       p.TypeName(),
		Score:      p.Points(),
		AuthorID:   authorID,
		CreatedAt:  p.CreatedAt(),
		IngestedAt: time.Now().UTC(),
	}
	if len(p.Kids) > 0 {
		// Marshalling []int64 cannot fail
		kids, _ := json.Marshal(p.Kids)
		item.Kids = datatypes.JSON(kids)
	}
	return item
}
