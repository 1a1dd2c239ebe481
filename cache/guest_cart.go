// Package cache holds carts of visitors who have not logged in yet. They live in Redis
// until the visitor signs in and the lines are merged into the persistent cart.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"refripartes-backend/models"
	"refripartes-backend/services"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	guestCartKeyPrefix = "guest_cart:"
	GuestCartTTL       = 30 * 24 * time.Hour

	setMaxRetries = 5
)

// GuestCartStore is the server-held cart of an anonymous visitor, keyed by guest ID.
type GuestCartStore interface {
	Add(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error
	Set(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error
	Remove(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey) error
	Items(ctx context.Context, guestID string) ([]services.CartLine, error)
	Clear(ctx context.Context, guestID string) error
}

// ValidGuestID reports whether id looks like a client-generated guest ID (a UUID).
func ValidGuestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func guestCartKey(guestID string) string {
	return guestCartKeyPrefix + guestID
}

func lineField(productID uuid.UUID, variant models.VariantKey) string {
	return productID.String() + ":" + variant.String()
}

func parseLineField(field string) (uuid.UUID, models.VariantKey, error) {
	productPart, variantPart, ok := strings.Cut(field, ":")
	if !ok {
		return uuid.Nil, models.VariantKey{}, fmt.Errorf("malformed cart field %q", field)
	}
	productID, err := uuid.Parse(productPart)
	if err != nil {
		return uuid.Nil, models.VariantKey{}, fmt.Errorf("malformed product in %q: %w", field, err)
	}
	variant, err := models.ParseVariantKey(variantPart)
	if err != nil {
		return uuid.Nil, models.VariantKey{}, fmt.Errorf("malformed variant in %q: %w", field, err)
	}
	return productID, variant, nil
}

// linesFromHash converts a guest cart hash into cart lines ordered by field.
// Malformed or non-positive entries are dropped.
func linesFromHash(hash map[string]string) []services.CartLine {
	fields := make([]string, 0, len(hash))
	for field := range hash {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]services.CartLine, 0, len(fields))
	for _, field := range fields {
		productID, variant, err := parseLineField(field)
		if err != nil {
			log.Printf("WARNING: skipping guest cart entry: %v", err)
			continue
		}
		quantity, err := strconv.Atoi(hash[field])
		if err != nil || quantity < 1 {
			log.Printf("WARNING: skipping guest cart entry %q with quantity %q", field, hash[field])
			continue
		}
		lines = append(lines, services.CartLine{ProductID: productID, Variant: variant, Quantity: quantity})
	}
	return lines
}

type RedisGuestCartStore struct {
	client *redis.Client
}

func NewRedisGuestCartStore(client *redis.Client) *RedisGuestCartStore {
	return &RedisGuestCartStore{client: client}
}

func (r *RedisGuestCartStore) Add(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error {
	if quantity < 1 {
		return services.ErrInvalidQuantity
	}
	key := guestCartKey(guestID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, lineField(productID, variant), int64(quantity))
		pipe.Expire(ctx, key, GuestCartTTL)
		return nil
	})
	return err
}

// Set overwrites the quantity of an existing line. The existence check and the write run
// under WATCH, so a concurrent Remove cannot be undone.
func (r *RedisGuestCartStore) Set(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey, quantity int) error {
	if quantity < 1 {
		return services.ErrInvalidQuantity
	}
	key := guestCartKey(guestID)
	field := lineField(productID, variant)

	update := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, key, field).Result()
		if err != nil {
			return err
		}
		if !exists {
			return services.ErrItemNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, quantity)
			pipe.Expire(ctx, key, GuestCartTTL)
			return nil
		})
		return err
	}

	for i := 0; i < setMaxRetries; i++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("set guest cart line: %w", redis.TxFailedErr)
}

func (r *RedisGuestCartStore) Remove(ctx context.Context, guestID string, productID uuid.UUID, variant models.VariantKey) error {
	removed, err := r.client.HDel(ctx, guestCartKey(guestID), lineField(productID, variant)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return services.ErrItemNotFound
	}
	return nil
}

func (r *RedisGuestCartStore) Items(ctx context.Context, guestID string) ([]services.CartLine, error) {
	hash, err := r.client.HGetAll(ctx, guestCartKey(guestID)).Result()
	if err != nil {
		return nil, err
	}
	return linesFromHash(hash), nil
}

func (r *RedisGuestCartStore) Clear(ctx context.Context, guestID string) error {
	return r.client.Del(ctx, guestCartKey(guestID)).Err()
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
