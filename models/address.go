package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Address struct {
	ID         uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Recipient  string         `gorm:"not null" json:"recipient"`
	Street     string         `gorm:"not null" json:"street"`
	City       string         `gorm:"not null" json:"city"`
	Province   string         `json:"province"`
	PostalCode string         `json:"postal_code"`
	Phone      string         `json:"phone"`
	IsDefault  bool           `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Label renders the address as a single line, the form snapshotted onto orders.
func (a Address) Label() string {
	s := fmt.Sprintf("%s, %s, %s", a.Recipient, a.Street, a.City)
	if a.Province != "" {
		s += ", " + a.Province
	}
	if a.PostalCode != "" {
		s += " (" + a.PostalCode + ")"
	}
	return s
}
