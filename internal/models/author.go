package models

import (
	"time"
)

// Author represents an upstream user, keyed by username
type Author struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username  string    `gorm:"type:varchar(64);not null;uniqueIndex:hn_authors_ux1;column:username"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Author
func (Author) TableName() string {
	return "hn_authors"
}
