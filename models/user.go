package models

import (
	"time"

	"creditbook/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	Phone    string    `gorm:"uniqueIndex;not null" json:"phone"`
	Password string    `gorm:"not null" json:"-"`

	FullName     string `gorm:"not null" json:"fullName"`
	BusinessName string `gorm:"not null" json:"businessName"`

	LastLogin *time.Time `json:"lastLogin,omitempty"`
	IsActive  bool       `gorm:"default:true" json:"isActive"`

	Customers []Customer `gorm:"foreignKey:UserID" json:"-"`

	gorm.Model `json:"-"`
}

// Initialize UUID and hash password before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}
