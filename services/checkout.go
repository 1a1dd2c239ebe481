package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"refripartes-backend/events"
	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutService turns carts into orders and drives the order status machine.
type CheckoutService struct {
	DB        *gorm.DB
	Publisher events.Publisher
}

func NewCheckoutService(db *gorm.DB, publisher events.Publisher) *CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &CheckoutService{DB: db, Publisher: publisher}
}

// PlaceOrder converts the user's cart into a PENDING order shipped to addressID.
// Stock is checked and decremented under row locks, prices are snapshotted and the cart
// is emptied, all in one transaction.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID, addressID uuid.UUID) (*models.Order, error) {
	var (
		order models.Order
		user  models.User
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		var address models.Address
		if err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAddressNotFound
			}
			return fmt.Errorf("load address: %w", err)
		}

		cartID, err := findCartID(tx, userID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cartID).Order("created_at ASC").Find(&items).Error; err != nil {
			return fmt.Errorf("load cart items: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			orderItem, err := reserveLine(tx, item)
			if err != nil {
				return err
			}
			total = total.Add(orderItem.UnitPrice.Mul(decimal.NewFromInt(int64(orderItem.Quantity))))
			orderItems = append(orderItems, orderItem)
		}

		order = models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPending,
			Total:           total,
			ShippingAddress: address.Label(),
			Items:           orderItems,
		}
		if err := tx.Omit("User").Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.User = user
	log.Printf("Order %s placed by %s (%d items, total %s)", order.OrderNumber, user.Email, len(order.Items), order.Total.StringFixed(2))

	s.publish(ctx, events.OrderEvent{
		Type:        events.OrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Total:       order.Total,
		OccurredAt:  order.CreatedAt,
	})
	utils.SendOrderConfirmation(user.Email, user.Name, order.OrderNumber, order.Total)

	return &order, nil
}

// reserveLine locks the product (and variant) row, checks and decrements stock, and returns
// the order line with its price snapshot.
func reserveLine(tx *gorm.DB, item models.CartItem) (models.OrderItem, error) {
	var product models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", item.ProductID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OrderItem{}, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		return models.OrderItem{}, fmt.Errorf("lock product: %w", err)
	}

	line := models.OrderItem{
		ProductID:   product.ID,
		VariantID:   item.VariantID,
		ProductName: product.Name,
		Quantity:    item.Quantity,
	}

	if item.VariantID == nil {
		if product.Stock < item.Quantity {
			return models.OrderItem{}, &StockError{ProductName: product.Name, Requested: item.Quantity, Available: product.Stock}
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
			return models.OrderItem{}, fmt.Errorf("decrement stock: %w", err)
		}
		line.UnitPrice = models.UnitPrice(product, nil)
		return line, nil
	}

	var variant models.ProductVariant
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND product_id = ?", *item.VariantID, product.ID).First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OrderItem{}, fmt.Errorf("%w: %s", ErrVariantNotFound, *item.VariantID)
		}
		return models.OrderItem{}, fmt.Errorf("lock variant: %w", err)
	}

	name := product.Name + " (" + variant.Name + ")"
	if variant.Stock < item.Quantity {
		return models.OrderItem{}, &StockError{ProductName: name, Requested: item.Quantity, Available: variant.Stock}
	}
	if err := tx.Model(&models.ProductVariant{}).Where("id = ?", variant.ID).
		Update("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
		return models.OrderItem{}, fmt.Errorf("decrement variant stock: %w", err)
	}

	line.VariantName = variant.Name
	line.UnitPrice = models.UnitPrice(product, &variant)
	return line, nil
}

// UpdateStatus moves an order along the status machine. Cancelling puts the ordered
// quantities back in stock.
func (s *CheckoutService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var (
		order    models.Order
		previous models.OrderStatus
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}

		previous = order.Status
		if !models.IsValidTransition(previous, status) {
			return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, previous, status)
		}

		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if status == models.OrderStatusCancelled {
			return restoreStock(tx, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Preload("Items").Preload("User").First(&order, "id = ?", order.ID).Error; err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	s.publish(ctx, events.OrderEvent{
		Type:           events.OrderStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		Total:          order.Total,
		OccurredAt:     time.Now(),
	})
	if order.User.Email != "" {
		utils.SendOrderStatusUpdate(order.User.Email, order.User.Name, order.OrderNumber, string(order.Status))
	}

	return &order, nil
}

func restoreStock(tx *gorm.DB, orderID uuid.UUID) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return fmt.Errorf("load order items: %w", err)
	}

	for _, item := range items {
		var err error
		if item.VariantID != nil {
			err = tx.Model(&models.ProductVariant{}).Where("id = ?", *item.VariantID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		} else {
			err = tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error
		}
		if err != nil {
			return fmt.Errorf("restore stock for %s: %w", item.ProductName, err)
		}
	}
	return nil
}

func (s *CheckoutService) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.Publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("WARNING: failed to publish %s for order %s: %v", event.Type, event.OrderNumber, err)
	}
}
