package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Item kinds
const (
	KindStory   = "story"
	KindComment = "comment"
)

// Item represents a story or a comment at any depth
type Item struct {
	ID          int64          `gorm:"primaryKey;autoIncrement;column:id"`
	ExternalID  int64          `gorm:"not null;uniqueIndex:hn_items_ux1;column:external_id"`
	Kind        string         `gorm:"type:varchar(16);not null;index;column:kind"`
	Type        string         `gorm:"type:varchar(16);not null;default:'';column:type"`
	Title       string         `gorm:"type:varchar(512);not null;default:'';column:title"`
	URL         string         `gorm:"type:varchar(2048);not null;default:'';column:url"`
	Text        string         `gorm:"type:text;not null;default:'';column:text"`
	Score       int            `gorm:"not null;default:0;column:score"`
	Descendants int            `gorm:"not null;default:0;column:descendants"`
	Kids        datatypes.JSON `gorm:"column:kids"`
	AuthorID    int64          `gorm:"not null;index;column:author_id"`
	ParentID    sql.NullInt64  `gorm:"index;column:parent_id"`
	StoryID     sql.NullInt64  `gorm:"index;column:story_id"`
	Depth       int32          `gorm:"type:integer;not null;default:0;column:depth"`
	CreatedAt   time.Time      `gorm:"not null;column:created_at"`
	IngestedAt  time.Time      `gorm:"not null;column:ingested_at"`

	// Relationships
	Author *Author `gorm:"foreignKey:AuthorID;references:ID"`
	Parent *Item   `gorm:"foreignKey:ParentID;references:ID"`
}

// TableName specifies the table name for Item
func (Item) TableName() string {
	return "hn_items"
}

// IsStory reports whether the item is the root of a tree
func (i *Item) IsStory() bool {
	return i.Kind == KindStory
}

// KidIDs decodes the stored child external IDs
func (i *Item) KidIDs() ([]int64, error) {
	if len(i.Kids) == 0 {
		return nil, nil
	}
	var kids []int64
	if err := json.Unmarshal(i.Kids, &kids); err != nil {
		return nil, err
	}
	return kids, nil
}
