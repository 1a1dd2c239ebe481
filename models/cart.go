package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VariantKey identifies the optional variant half of a cart line. The zero value means
// "no variant"; a concrete variant never equals the absent key.
type VariantKey struct {
	id      uuid.UUID
	present bool
}

// NoVariant is the key for a line that refers to the base product.
func NoVariant() VariantKey { return VariantKey{} }

// VariantOf is the key for a concrete variant.
func VariantOf(id uuid.UUID) VariantKey { return VariantKey{id: id, present: true} }

// VariantFromPtr maps a nullable variant id (as received in JSON) to a key.
func VariantFromPtr(id *uuid.UUID) VariantKey {
	if id == nil {
		return NoVariant()
	}
	return VariantOf(*id)
}

// ParseVariantKey is the inverse of String.
func ParseVariantKey(s string) (VariantKey, error) {
	if s == "" {
		return NoVariant(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return VariantKey{}, err
	}
	return VariantOf(id), nil
}

func (k VariantKey) ID() (uuid.UUID, bool) { return k.id, k.present }

func (k VariantKey) IsPresent() bool { return k.present }

func (k VariantKey) Ptr() *uuid.UUID {
	if !k.present {
		return nil
	}
	id := k.id
	return &id
}

// String is the persisted form: empty for no variant, the UUID otherwise.
func (k VariantKey) String() string {
	if !k.present {
		return ""
	}
	return k.id.String()
}

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CartID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Product    Product         `gorm:"foreignKey:ProductID" json:"product"`
	VariantID  *uuid.UUID      `gorm:"type:uuid" json:"variant_id"`
	Variant    *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	VariantKey string          `gorm:"not null;default:'';uniqueIndex:idx_cart_line" json:"-"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps the persisted key in step with VariantID.
func (c *CartItem) BeforeSave(tx *gorm.DB) error {
	c.VariantKey = c.Key().String()
	return nil
}

func (c *CartItem) Key() VariantKey {
	return VariantFromPtr(c.VariantID)
}
