package services

import (
	"context"
	"errors"
	"testing"

	"refripartes-backend/events"
	"refripartes-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	user      models.User
	address   models.Address
	product   models.Product
	variant   models.ProductVariant
	publisher *recordingPublisher
	checkout  *CheckoutService
	cart      *CartStore
}

func newCheckoutFixture(t *testing.T) checkoutFixture {
	db := freshDB(t)
	user := seedUser(t, db, "checkout@test.com")
	product := seedProduct(t, db, seedCategory(t, db, "Evaporadores"), "Evaporador", "50.00", 10)
	publisher := &recordingPublisher{}

	return checkoutFixture{
		user:      user,
		address:   seedAddress(t, db, user),
		product:   product,
		variant:   seedVariant(t, db, product, "Doble", strPtr("75.50"), 3),
		publisher: publisher,
		checkout:  NewCheckoutService(db, publisher),
		cart:      NewCartStore(db),
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 2, models.NoVariant())
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, f.product.ID, 1, models.VariantOf(f.variant.ID))
	require.NoError(t, err)

	order, err := f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("175.50")), "total %s", order.Total)
	assert.Equal(t, f.address.Label(), order.ShippingAddress)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.Items, 2)

	var stored models.Order
	require.NoError(t, testDB.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	require.Len(t, stored.Items, 2)
	for _, item := range stored.Items {
		if item.VariantID == nil {
			assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(50)))
			assert.Equal(t, 2, item.Quantity)
		} else {
			assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("75.50")))
			assert.Equal(t, "Doble", item.VariantName)
		}
		assert.Equal(t, "Evaporador", item.ProductName)
	}

	var product models.Product
	require.NoError(t, testDB.First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 8, product.Stock)
	var variant models.ProductVariant
	require.NoError(t, testDB.First(&variant, "id = ?", f.variant.ID).Error)
	assert.Equal(t, 2, variant.Stock)

	cart, err := f.cart.GetOrCreateCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	published := f.publisher.recorded()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderCreated, published[0].Type)
	assert.Equal(t, order.ID, published[0].OrderID)

	// Later price changes do not touch the snapshot.
	require.NoError(t, testDB.Model(&models.Product{}).Where("id = ?", f.product.ID).
		Update("price", decimal.NewFromInt(99)).Error)
	var item models.OrderItem
	require.NoError(t, testDB.Where("order_id = ? AND variant_id IS NULL", order.ID).First(&item).Error)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(50)))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	assert.ErrorIs(t, err, ErrEmptyCart, "user without a cart")

	_, err = f.cart.GetOrCreateCart(ctx, f.user.ID)
	require.NoError(t, err)
	_, err = f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	assert.ErrorIs(t, err, ErrEmptyCart, "cart without items")

	assert.Empty(t, f.publisher.recorded())
}

func TestPlaceOrderForeignAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	other := seedUser(t, testDB, "other@test.com")
	otherAddress := seedAddress(t, testDB, other)

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 1, models.NoVariant())
	require.NoError(t, err)

	_, err = f.checkout.PlaceOrder(ctx, f.user.ID, otherAddress.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 2, models.NoVariant())
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, f.product.ID, 4, models.VariantOf(f.variant.ID))
	require.NoError(t, err)

	_, err = f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Evaporador (Doble)", stockErr.ProductName)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)

	var product models.Product
	require.NoError(t, testDB.First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 10, product.Stock, "earlier decrement rolled back")

	var orders int64
	testDB.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)

	cart, err := f.cart.GetOrCreateCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 1, models.NoVariant())
	require.NoError(t, err)
	order, err := f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	require.NoError(t, err)

	_, err = f.checkout.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition, "PENDING cannot jump to SHIPPED")

	updated, err := f.checkout.UpdateStatus(ctx, order.ID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, updated.Status)
	assert.Equal(t, f.user.Email, updated.User.Email)

	updated, err = f.checkout.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	_, err = f.checkout.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition, "SHIPPED is terminal")

	published := f.publisher.recorded()
	require.Len(t, published, 3)
	assert.Equal(t, events.OrderStatusChanged, published[1].Type)
	assert.Equal(t, "PENDING", published[1].PreviousStatus)
	assert.Equal(t, "PAID", published[1].Status)
	assert.Equal(t, "PAID", published[2].PreviousStatus)
}

func TestUpdateStatusCancelRestoresStock(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 3, models.NoVariant())
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.user.ID, f.product.ID, 2, models.VariantOf(f.variant.ID))
	require.NoError(t, err)
	order, err := f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	require.NoError(t, err)

	_, err = f.checkout.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, testDB.First(&product, "id = ?", f.product.ID).Error)
	assert.Equal(t, 10, product.Stock)
	var variant models.ProductVariant
	require.NoError(t, testDB.First(&variant, "id = ?", f.variant.ID).Error)
	assert.Equal(t, 3, variant.Stock)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.UpdateStatus(ctx, uuid.New(), models.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.checkout.UpdateStatus(ctx, uuid.New(), models.OrderStatus("DELIVERED"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPublisherFailureDoesNotFailCheckout(t *testing.T) {
	f := newCheckoutFixture(t)
	f.publisher.err = errors.New("broker down")
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.user.ID, f.product.ID, 1, models.NoVariant())
	require.NoError(t, err)

	order, err := f.checkout.PlaceOrder(ctx, f.user.ID, f.address.ID)
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Len(t, f.publisher.recorded(), 1)
}
