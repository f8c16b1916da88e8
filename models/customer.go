package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`

	Name  string `gorm:"not null" json:"name"`
	Phone string `json:"phone,omitempty"`

	// Positive = customer owes the owner. Adjusted only inside the same
	// database transaction that records the ledger entry.
	TotalDue float64 `gorm:"type:decimal(12,2);default:0.0" json:"totalDue"`

	// Recycle-bin state. Orthogonal to sync status on the client; toggling
	// it never touches TotalDue or the transaction history.
	IsDeleted bool `gorm:"default:false;index" json:"isDeleted"`

	Transactions []Transaction `gorm:"foreignKey:CustomerID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
