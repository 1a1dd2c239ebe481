package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// LowStockThreshold is the stock level at or below which a product counts as low stock.
const LowStockThreshold = 5

type Product struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string           `gorm:"not null;index" json:"name"`
	Slug        string           `gorm:"uniqueIndex;not null" json:"slug"`
	Description string           `json:"description"`
	Brand       string           `gorm:"index" json:"brand"`
	Price       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int              `gorm:"default:0;index" json:"stock"`
	CategoryID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"category_id"`
	Category    Category         `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name) + "-" + p.ID.String()[:8]
	}
	return nil
}

// PrimaryImageURL returns the primary image, falling back to the first one.
func (p *Product) PrimaryImageURL() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].ImageURL
	}
	return ""
}

// ProductVariant is a sellable sub-selection of a product, e.g. a voltage or a size.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProductID uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string           `gorm:"not null" json:"name"`
	SKU       string           `gorm:"uniqueIndex;not null" json:"sku"`
	Price     *decimal.Decimal `gorm:"type:numeric(12,2)" json:"price,omitempty"` // nil means product price
	Stock     int              `gorm:"default:0" json:"stock"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// UnitPrice resolves the price charged for the product, honouring a variant override.
func UnitPrice(p Product, v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}

var slugStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases, strips accents and joins words with dashes ("Válvula 1/4" -> "valvula-1-4").
func Slugify(s string) string {
	plain, _, err := transform.String(slugStripper, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
