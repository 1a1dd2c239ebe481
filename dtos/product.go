package dtos

import (
	"refripartes-backend/models"

	"github.com/shopspring/decimal"
)

type VariantRequest struct {
	Name  string           `json:"name" binding:"required,max=100"`
	SKU   string           `json:"sku" binding:"required,max=64"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock" binding:"omitempty,min=0"`
}

type ImportImageRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// ProductDetail is a product with its variants, images and review summary.
type ProductDetail struct {
	models.Product
	Rating RatingSummary `json:"rating"`
}
