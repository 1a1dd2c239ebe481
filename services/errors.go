package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found for product")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// StockError reports a cart line that cannot be fulfilled. It matches ErrInsufficientStock.
type StockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// MergeError reports the line a Merge stopped at. Applied is the number of lines before it,
// which stay in the cart.
type MergeError struct {
	Applied   int
	ProductID uuid.UUID
	Err       error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge line %d (product %s): %v", e.Applied, e.ProductID, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }
