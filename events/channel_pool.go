package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNoChannel = errors.New("no channels available in pool")

// ChannelPool hands out AMQP channels. A slot holding nil or a closed channel is reopened
// before use, so broker-side channel errors never shrink the pool.
type ChannelPool struct {
	conn     *amqp.Connection
	open     func() (*amqp.Channel, error)
	slots    chan *amqp.Channel
	mu       sync.Mutex
	closed   bool
	exchange string
}

// NewChannelPool dials RabbitMQ and pre-opens size channels, each with the topic exchange declared.
func NewChannelPool(url, exchange string, size int) (*ChannelPool, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	pool := &ChannelPool{
		conn:     conn,
		slots:    make(chan *amqp.Channel, size),
		exchange: exchange,
	}
	pool.open = pool.createChannel

	for i := 0; i < size; i++ {
		ch, err := pool.createChannel()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		pool.slots <- ch
	}

	log.Printf("Created RabbitMQ channel pool with %d channels (exchange %s)", size, exchange)
	return pool, nil
}

func (p *ChannelPool) createChannel() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return ch, nil
}

// GetChannel waits for a free slot until ctx is done. A broken channel in the slot is
// reopened; if that fails the empty slot goes back to the pool.
func (p *ChannelPool) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch, ok := <-p.slots:
		if !ok {
			return nil, ErrNoChannel
		}
		if ch != nil && !ch.IsClosed() {
			return ch, nil
		}
		fresh, err := p.open()
		if err != nil {
			p.putSlot(nil)
			return nil, fmt.Errorf("failed to reopen channel: %w", err)
		}
		return fresh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReturnChannel gives the slot back. A nil or closed ch is replaced by a fresh channel, or
// by an empty slot when reopening fails.
func (p *ChannelPool) ReturnChannel(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		if p.isClosed() {
			return
		}
		fresh, err := p.open()
		if err != nil {
			log.Printf("WARNING: failed to replace closed RabbitMQ channel: %v", err)
		}
		ch = fresh
	}
	p.putSlot(ch)
}

func (p *ChannelPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *ChannelPool) putSlot(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if ch != nil {
			ch.Close()
		}
		return
	}
	select {
	case p.slots <- ch:
	default:
		if ch != nil {
			ch.Close()
		}
	}
}

func (p *ChannelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	close(p.slots)
	for ch := range p.slots {
		if ch != nil {
			ch.Close()
		}
	}
	if p.conn != nil {
		p.conn.Close()
	}
	log.Println("Closed RabbitMQ channel pool")
}
