package models

import (
	"time"

	"github.com/google/uuid"
)

// Backup is the per-user record behind the opaque blob store. One blob per
// user; a new upload replaces the previous one.
type Backup struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	FileName string    `gorm:"not null"`
	FilePath string    `gorm:"not null"`
	Size     int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
