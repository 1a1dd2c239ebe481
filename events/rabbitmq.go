package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// RabbitPublisher publishes order events to a topic exchange, routed by event type.
type RabbitPublisher struct {
	pool     *ChannelPool
	exchange string
}

func NewRabbitPublisher(pool *ChannelPool, exchange string) *RabbitPublisher {
	return &RabbitPublisher{pool: pool, exchange: exchange}
}

func (p *RabbitPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.GetChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.ReturnChannel(ch)

	err = ch.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.OrderID.String(),
			Timestamp:    event.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	log.Printf("Published %s for order %s", event.Type, event.OrderNumber)
	return nil
}
