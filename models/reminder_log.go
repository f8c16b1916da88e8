// models/reminder_log.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderLog records every payment-reminder message sent (or attempted)
// for a customer with an outstanding balance.
type ReminderLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customerId"`

	Message      string  `json:"message"`
	AmountDue    float64 `gorm:"type:decimal(12,2)" json:"amountDue"`
	Status       string  `gorm:"type:varchar(20)" json:"status"` // "sent" or "failed"
	ErrorMessage string  `json:"errorMessage,omitempty"`
	Channel      string  `gorm:"type:varchar(20)" json:"channel"` // "sms" or "whatsapp"

	SentAt    time.Time `json:"sentAt"`
	CreatedAt time.Time `json:"-"`
}
