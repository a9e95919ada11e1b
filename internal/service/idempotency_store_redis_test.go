package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreForTest(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, "idem-test")
}

func TestRedisStoreBeginLifecycle(t *testing.T) {
	store := newRedisStoreForTest(t)
	ctx := context.Background()
	ttl := time.Hour

	first, err := store.Begin(ctx, "payment", "key-1", "fp-a", BeginMeta{OrderID: "order-1", UserID: "user-1"}, ttl)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if first.State != IdempotencyStateNew {
		t.Fatalf("expected new, got %s", first.State)
	}

	second, err := store.Begin(ctx, "payment", "key-1", "fp-a", BeginMeta{}, ttl)
	if err != nil {
		t.Fatalf("begin twin: %v", err)
	}
	if second.State != IdempotencyStateInProgress {
		t.Fatalf("expected in_progress, got %s", second.State)
	}

	resp := CachedResponse{StatusCode: 201, ContentType: "application/json", Body: []byte(`{"id":"x"}`)}
	if err := store.Complete(ctx, "payment", "key-1", "fp-a", resp, ttl); err != nil {
		t.Fatalf("complete: %v", err)
	}

	replay, err := store.Begin(ctx, "payment", "key-1", "fp-a", BeginMeta{}, ttl)
	if err != nil {
		t.Fatalf("begin after complete: %v", err)
	}
	if replay.State != IdempotencyStateReplay {
		t.Fatalf("expected replay, got %s", replay.State)
	}
	if replay.Cached == nil || replay.Cached.StatusCode != 201 || string(replay.Cached.Body) != `{"id":"x"}` {
		t.Fatalf("cached response did not round-trip: %+v", replay.Cached)
	}
}

func TestRedisStoreConflictAndFailedRetry(t *testing.T) {
	store := newRedisStoreForTest(t)
	ctx := context.Background()
	ttl := time.Hour

	if _, err := store.Begin(ctx, "checkout", "key-1", "fp-a", BeginMeta{}, ttl); err != nil {
		t.Fatalf("begin: %v", err)
	}

	conflict, err := store.Begin(ctx, "checkout", "key-1", "fp-b", BeginMeta{}, ttl)
	if err != nil {
		t.Fatalf("begin conflict: %v", err)
	}
	if conflict.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %s", conflict.State)
	}

	if err := store.Fail(ctx, "checkout", "key-1", "fp-a", "downstream error"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	retry, err := store.Begin(ctx, "checkout", "key-1", "fp-a", BeginMeta{}, ttl)
	if err != nil {
		t.Fatalf("begin retry: %v", err)
	}
	if retry.State != IdempotencyStateNew {
		t.Fatalf("retried request after FAILED must be new, got %s", retry.State)
	}
}

func TestRedisStoreKeyExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisIdempotencyStore(client, "idem-test")
	ctx := context.Background()

	if _, err := store.Begin(ctx, "payment", "key-1", "fp-a", BeginMeta{}, time.Minute); err != nil {
		t.Fatalf("begin: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	res, err := store.Begin(ctx, "payment", "key-1", "fp-a", BeginMeta{}, time.Minute)
	if err != nil {
		t.Fatalf("begin after expiry: %v", err)
	}
	if res.State != IdempotencyStateNew {
		t.Fatalf("expired key must not block, got %s", res.State)
	}
}
