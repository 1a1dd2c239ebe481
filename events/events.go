package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body published for order lifecycle changes.
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	UserID         uuid.UUID       `json:"user_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Total          decimal.Decimal `json:"total"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// NoopPublisher drops every event. Used when RabbitMQ is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error { return nil }
