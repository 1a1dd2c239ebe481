package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"refripartes-backend/models"
	"refripartes-backend/services"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestValidGuestID(t *testing.T) {
	if !ValidGuestID(uuid.New().String()) {
		t.Error("expected UUID to be a valid guest id")
	}
	for _, id := range []string{"", "guest", "../../etc"} {
		if ValidGuestID(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestLineFieldRoundTrip(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()

	for _, variant := range []models.VariantKey{models.NoVariant(), models.VariantOf(variantID)} {
		field := lineField(productID, variant)
		gotProduct, gotVariant, err := parseLineField(field)
		if err != nil {
			t.Fatalf("parse %q: %v", field, err)
		}
		if gotProduct != productID || gotVariant != variant {
			t.Errorf("round trip mismatch for %q", field)
		}
	}

	if lineField(productID, models.NoVariant()) == lineField(productID, models.VariantOf(variantID)) {
		t.Error("absent and concrete variant must map to different fields")
	}
}

func TestLinesFromHashSkipsMalformed(t *testing.T) {
	p1 := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	p2 := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	v := uuid.New()

	hash := map[string]string{
		lineField(p2, models.VariantOf(v)): "2",
		lineField(p1, models.NoVariant()):  "1",
		"not-a-field":                      "4",
		p1.String() + ":bad-variant":       "1",
		lineField(p1, models.VariantOf(v)): "0",
		lineField(p2, models.NoVariant()):  "abc",
	}

	lines := linesFromHash(hash)
	if len(lines) != 2 {
		t.Fatalf("expected 2 valid lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].ProductID != p1 || lines[0].Variant.IsPresent() || lines[0].Quantity != 1 {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if lines[1].ProductID != p2 || lines[1].Variant != models.VariantOf(v) || lines[1].Quantity != 2 {
		t.Errorf("unexpected second line %+v", lines[1])
	}
}

func TestRedisGuestCart(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisGuestCartStore(client)
	guestID := uuid.New().String()
	defer store.Clear(ctx, guestID)

	productID := uuid.New()
	variantID := uuid.New()

	if err := store.Add(ctx, guestID, productID, models.NoVariant(), 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, guestID, productID, models.NoVariant(), 2); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, guestID, productID, models.VariantOf(variantID), 5); err != nil {
		t.Fatal(err)
	}

	lines, err := store.Items(ctx, guestID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !line.Variant.IsPresent() && line.Quantity != 3 {
			t.Errorf("expected accumulated quantity 3, got %d", line.Quantity)
		}
		if line.Variant.IsPresent() && line.Quantity != 5 {
			t.Errorf("expected variant quantity 5, got %d", line.Quantity)
		}
	}

	ttl, err := client.TTL(ctx, guestCartKey(guestID)).Result()
	if err != nil || ttl <= 0 || ttl > GuestCartTTL {
		t.Errorf("expected TTL within (0, %v], got %v (%v)", GuestCartTTL, ttl, err)
	}

	if err := store.Set(ctx, guestID, productID, models.VariantOf(variantID), 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, guestID, uuid.New(), models.NoVariant(), 1); !errors.Is(err, services.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound on Set of missing line, got %v", err)
	}
	if err := store.Add(ctx, guestID, productID, models.NoVariant(), 0); !errors.Is(err, services.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}

	if err := store.Remove(ctx, guestID, productID, models.NoVariant()); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ctx, guestID, productID, models.NoVariant()); !errors.Is(err, services.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound on second remove, got %v", err)
	}

	if err := store.Clear(ctx, guestID); err != nil {
		t.Fatal(err)
	}
	lines, err = store.Items(ctx, guestID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Errorf("expected empty cart after clear, got %d lines", len(lines))
	}
}

func TestRedisGuestCartSetNeverRevivesRemovedLine(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisGuestCartStore(client)
	guestID := uuid.New().String()
	defer store.Clear(ctx, guestID)
	productID := uuid.New()

	for i := 0; i < 50; i++ {
		if err := store.Add(ctx, guestID, productID, models.NoVariant(), 1); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Remove(ctx, guestID, productID, models.NoVariant())
		}()
		go func() {
			defer wg.Done()
			err := store.Set(ctx, guestID, productID, models.NoVariant(), 5)
			if err != nil && !errors.Is(err, services.ErrItemNotFound) {
				t.Errorf("unexpected Set error: %v", err)
			}
		}()
		wg.Wait()

		exists, err := client.HExists(ctx, guestCartKey(guestID), lineField(productID, models.NoVariant())).Result()
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			t.Fatalf("iteration %d: removed line came back", i)
		}
	}
}
