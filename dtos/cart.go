package dtos

import "github.com/google/uuid"

type CartItemInput struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1"`
}

// MergeCartRequest carries the contents of a client-side cart to fold into the user's cart.
type MergeCartRequest struct {
	Items []CartItemInput `json:"items" binding:"required,dive"`
}
