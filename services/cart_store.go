package services

import (
	"context"
	"errors"
	"fmt"

	"refripartes-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartLine is one (product, variant, quantity) entry, the unit Merge works in.
type CartLine struct {
	ProductID uuid.UUID
	Variant   models.VariantKey
	Quantity  int
}

// CartStore persists one cart per user. Lines are keyed by (product, variant).
type CartStore struct {
	DB *gorm.DB
}

func NewCartStore(db *gorm.DB) *CartStore {
	return &CartStore{DB: db}
}

// GetOrCreateCart returns the user's cart with its items, creating an empty cart on first use.
func (s *CartStore) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := s.DB.WithContext(ctx)
	cart, err := getOrCreateCart(db, userID)
	if err != nil {
		return nil, err
	}

	if err := db.Preload("Product").Preload("Product.Images").Preload("Variant").
		Where("cart_id = ?", cart.ID).Order("created_at ASC").Find(&cart.Items).Error; err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	return cart, nil
}

// AddItem increments the line for (productID, variant) by quantity, inserting it if absent.
func (s *CartStore) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, variant models.VariantKey) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	db := s.DB.WithContext(ctx)
	if err := checkProductVariant(db, productID, variant); err != nil {
		return nil, err
	}

	cart, err := getOrCreateCart(db, userID)
	if err != nil {
		return nil, err
	}

	item, err := findLine(db, cart.ID, productID, variant)
	switch {
	case err == nil:
		if err := db.Model(&models.CartItem{}).Where("id = ?", item.ID).
			Update("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
			return nil, fmt.Errorf("increment cart item: %w", err)
		}
	case errors.Is(err, ErrItemNotFound):
		item = &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			VariantID: variant.Ptr(),
			Quantity:  quantity,
		}
		if err := db.Create(item).Error; err != nil {
			return nil, fmt.Errorf("insert cart item: %w", err)
		}
	default:
		return nil, err
	}

	return loadItem(db, item.ID)
}

// UpdateItem overwrites the quantity of an existing line.
func (s *CartStore) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int, variant models.VariantKey) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	db := s.DB.WithContext(ctx)
	cartID, err := findCartID(db, userID)
	if err != nil {
		return nil, err
	}

	item, err := findLine(db, cartID, productID, variant)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&models.CartItem{}).Where("id = ?", item.ID).
		Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return loadItem(db, item.ID)
}

// RemoveItem deletes the line for (productID, variant).
func (s *CartStore) RemoveItem(ctx context.Context, userID, productID uuid.UUID, variant models.VariantKey) error {
	db := s.DB.WithContext(ctx)
	cartID, err := findCartID(db, userID)
	if err != nil {
		return err
	}

	res := db.Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variant.String()).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("remove cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear deletes every line of the user's cart. An empty or missing cart is left as is.
func (s *CartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	db := s.DB.WithContext(ctx)
	cartID, err := findCartID(db, userID)
	if errors.Is(err, ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Merge applies AddItem for each line in order. It is not atomic: when a line fails, the
// lines before it stay applied and a *MergeError saying how many were applied is returned
// straight away.
func (s *CartStore) Merge(ctx context.Context, userID uuid.UUID, lines []CartLine) (*models.Cart, error) {
	for i, line := range lines {
		if _, err := s.AddItem(ctx, userID, line.ProductID, line.Quantity, line.Variant); err != nil {
			return nil, &MergeError{Applied: i, ProductID: line.ProductID, Err: err}
		}
	}
	return s.GetOrCreateCart(ctx, userID)
}

func getOrCreateCart(db *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	// A concurrent request may create the cart first; the unique user_id absorbs it.
	created := models.Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&created).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	var stored models.Cart
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload cart: %w", err)
	}
	return &stored, nil
}

// findCartID resolves the user's cart without creating it. A user with no cart has no items,
// so the miss is reported as ErrItemNotFound.
func findCartID(db *gorm.DB, userID uuid.UUID) (uuid.UUID, error) {
	var cart models.Cart
	err := db.Select("id").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrItemNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find cart: %w", err)
	}
	return cart.ID, nil
}

func findLine(db *gorm.DB, cartID, productID uuid.UUID, variant models.VariantKey) (*models.CartItem, error) {
	var item models.CartItem
	err := db.Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variant.String()).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return &item, nil
}

func loadItem(db *gorm.DB, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := db.Preload("Product").Preload("Product.Images").Preload("Variant").
		Where("id = ?", id).First(&item).Error; err != nil {
		return nil, fmt.Errorf("load cart item: %w", err)
	}
	return &item, nil
}

func checkProductVariant(db *gorm.DB, productID uuid.UUID, variant models.VariantKey) error {
	var count int64
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if count == 0 {
		return ErrProductNotFound
	}

	variantID, ok := variant.ID()
	if !ok {
		return nil
	}
	if err := db.Model(&models.ProductVariant{}).
		Where("id = ? AND product_id = ?", variantID, productID).Count(&count).Error; err != nil {
		return fmt.Errorf("check variant: %w", err)
	}
	if count == 0 {
		return ErrVariantNotFound
	}
	return nil
}
