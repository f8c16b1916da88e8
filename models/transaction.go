package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionCredit  = "CREDIT"
	TransactionPayment = "PAYMENT"
)

type Transaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customerId"`

	// Magnitude, always positive. The sign comes from Type.
	Amount      float64 `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type        string  `gorm:"type:varchar(10);not null" json:"type"`
	Description string  `json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// SignedAmount returns the delta this entry applies to the owning
// customer's balance.
func (t *Transaction) SignedAmount() float64 {
	if t.Type == TransactionPayment {
		return -t.Amount
	}
	return t.Amount
}
