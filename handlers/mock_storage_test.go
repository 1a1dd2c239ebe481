package handlers

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"refripartes-backend/events"
	"refripartes-backend/firebase"
	"refripartes-backend/models"
	"refripartes-backend/services"

	"github.com/google/uuid"
)

func bgCtx() context.Context { return context.Background() }

type mockStorage struct {
	UploadProductImageFn func(productID uuid.UUID, filename string) (firebase.StoredObject, error)
	ImportProductImageFn func(productID uuid.UUID, imageURL string) (firebase.StoredObject, error)
	DeleteObjectFn       func(objectPath string) error
	DeleteObjectCalls    []string
	UploadCallCount      int
}

func newMockStorage() *mockStorage {
	return &mockStorage{DeleteObjectCalls: []string{}}
}

func (m *mockStorage) UploadProductImage(ctx context.Context, productID uuid.UUID, file io.Reader, filename, contentType string) (firebase.StoredObject, error) {
	m.UploadCallCount++
	if m.UploadProductImageFn != nil {
		return m.UploadProductImageFn(productID, filename)
	}
	path := fmt.Sprintf("products/%s/%d_%s", productID, m.UploadCallCount, filename)
	return firebase.StoredObject{URL: firebase.PublicURL("test-bucket", path), ObjectPath: path}, nil
}

func (m *mockStorage) ImportProductImage(ctx context.Context, productID uuid.UUID, imageURL string) (firebase.StoredObject, error) {
	m.UploadCallCount++
	if m.ImportProductImageFn != nil {
		return m.ImportProductImageFn(productID, imageURL)
	}
	path := fmt.Sprintf("products/%s/imported.jpg", productID)
	return firebase.StoredObject{URL: firebase.PublicURL("test-bucket", path), ObjectPath: path}, nil
}

func (m *mockStorage) DeleteObject(ctx context.Context, objectPath string) error {
	m.DeleteObjectCalls = append(m.DeleteObjectCalls, objectPath)
	if m.DeleteObjectFn != nil {
		return m.DeleteObjectFn(objectPath)
	}
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *mockPublisher) PublishOrderEvent(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *mockPublisher) published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}

// memGuestCarts is an in-memory guest cart store with the semantics of the Redis one.
type memGuestCarts struct {
	mu       sync.Mutex
	carts    map[string]map[string]services.CartLine
	itemsErr error
}

func newMemGuestCarts() *memGuestCarts {
	return &memGuestCarts{carts: map[string]map[string]services.CartLine{}}
}

func memField(productID uuid.UUID, variant models.VariantKey) string {
	return productID.String() + ":" + variant.String()
}

func (m *memGuestCarts) Add(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error {
	if quantity < 1 {
		return services.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[guestID]
	if !ok {
		cart = map[string]services.CartLine{}
		m.carts[guestID] = cart
	}
	line := cart[memField(productID, variant)]
	line.ProductID = productID
	line.Variant = variant
	line.Quantity += quantity
	cart[memField(productID, variant)] = line
	return nil
}

func (m *memGuestCarts) Set(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error {
	if quantity < 1 {
		return services.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.carts[guestID][memField(productID, variant)]
	if !ok {
		return services.ErrItemNotFound
	}
	line.Quantity = quantity
	m.carts[guestID][memField(productID, variant)] = line
	return nil
}

func (m *memGuestCarts) Remove(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[guestID][memField(productID, variant)]; !ok {
		return services.ErrItemNotFound
	}
	delete(m.carts[guestID], memField(productID, variant))
	return nil
}

func (m *memGuestCarts) Items(ctx context.Context, guestID string) ([]services.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	fields := make([]string, 0, len(m.carts[guestID]))
	for f := range m.carts[guestID] {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	lines := make([]services.CartLine, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, m.carts[guestID][f])
	}
	return lines, nil
}

func (m *memGuestCarts) Clear(ctx context.Context, guestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, guestID)
	return nil
}
