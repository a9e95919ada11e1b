package service

import (
	"context"
	"time"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

type CachedResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedResponse
}

// BeginMeta carries the business identifiers stored alongside a new
// idempotency record.
type BeginMeta struct {
	OrderID string
	UserID  string
}

// IdempotencyStore is the atomic check-then-register primitive. Begin must
// be a single insert-if-absent: two concurrent Begins for the same
// (scope, key) see exactly one "new". A FAILED record is superseded by a
// fresh PENDING one, so a retried request gets "new" again. Expired
// records are evicted lazily inside Begin.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, meta BeginMeta, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedResponse, ttl time.Duration) error
	Fail(ctx context.Context, scope, key, fingerprint, reason string) error
	CleanupExpired(ctx context.Context, now time.Time, batch int) (int64, error)
}
