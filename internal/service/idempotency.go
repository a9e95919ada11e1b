package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// BeginOutcome is what the ledger tells a caller about an operation it is
// about to run.
type BeginOutcome string

const (
	// OutcomeValid: novel operation, proceed and mark completed/failed.
	OutcomeValid BeginOutcome = "VALID"
	// OutcomeDuplicate: already completed, return the cached response.
	OutcomeDuplicate BeginOutcome = "DUPLICATE"
	// OutcomeInProgress: a twin request holds the PENDING record; wait.
	OutcomeInProgress BeginOutcome = "IN_PROGRESS"
)

type LedgerResult struct {
	Outcome BeginOutcome
	Key     string
	Cached  *CachedResponse
}

// IdempotencyLedger deduplicates operations by a key derived from the
// caller, the operation type, the canonicalized payload and a coarse hour
// bucket. Refunds are deliberately not time-bucketed: a second refund for
// a different reason must never collide with a stale bucketed key.
type IdempotencyLedger struct {
	store  IdempotencyStore
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

func NewIdempotencyLedger(store IdempotencyStore, logger *slog.Logger, ttl time.Duration) *IdempotencyLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyLedger{
		store:  store,
		logger: logger,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DeriveKey builds the dedup key. encoding/json emits map keys in sorted
// order, which is the canonical form the hash is taken over.
func (l *IdempotencyLedger) DeriveKey(userID string, op domain.OperationType, payload map[string]any) (string, error) {
	digest, err := fingerprintPayload(payload)
	if err != nil {
		return "", err
	}
	bucket := l.now().Format("2006010215")
	if op == domain.OperationRefund {
		bucket = "-"
	}
	return fmt.Sprintf("%s:%s:%s:%s", userID, op, digest[:16], bucket), nil
}

// Begin atomically checks for a duplicate and registers the operation.
// A fingerprint conflict under the same key is key reuse with different
// content: logged as a warning and treated as not-a-duplicate, never
// blocked.
func (l *IdempotencyLedger) Begin(ctx context.Context, op domain.OperationType, key string, payload map[string]any, meta BeginMeta) (LedgerResult, error) {
	digest, err := fingerprintPayload(payload)
	if err != nil {
		return LedgerResult{}, err
	}
	res, err := l.store.Begin(ctx, string(op), key, digest, meta, l.ttl)
	if err != nil {
		return LedgerResult{}, err
	}
	switch res.State {
	case IdempotencyStateNew:
		return LedgerResult{Outcome: OutcomeValid, Key: key}, nil
	case IdempotencyStateReplay:
		return LedgerResult{Outcome: OutcomeDuplicate, Key: key, Cached: res.Cached}, nil
	case IdempotencyStateInProgress:
		return LedgerResult{Outcome: OutcomeInProgress, Key: key}, nil
	case IdempotencyStateConflict:
		l.logger.WarnContext(ctx, "idempotency key reuse with different content",
			"operation", string(op), "key", key)
		return LedgerResult{Outcome: OutcomeValid, Key: key}, nil
	default:
		return LedgerResult{}, fmt.Errorf("unknown idempotency state %q", res.State)
	}
}

func (l *IdempotencyLedger) MarkCompleted(ctx context.Context, op domain.OperationType, key string, payload map[string]any, response []byte) error {
	digest, err := fingerprintPayload(payload)
	if err != nil {
		return err
	}
	return l.store.Complete(ctx, string(op), key, digest, CachedResponse{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        response,
	}, l.ttl)
}

func (l *IdempotencyLedger) MarkFailed(ctx context.Context, op domain.OperationType, key string, payload map[string]any, reason string) error {
	digest, err := fingerprintPayload(payload)
	if err != nil {
		return err
	}
	return l.store.Fail(ctx, string(op), key, digest, reason)
}

func fingerprintPayload(payload map[string]any) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// PaymentIdempotencyValidator is the payment-specific front door to the
// ledger. VALID means proceed, DUPLICATE means return the cached response
// verbatim, IN_PROGRESS means back off and retry later.
type PaymentIdempotencyValidator struct {
	ledger *IdempotencyLedger
}

func NewPaymentIdempotencyValidator(ledger *IdempotencyLedger) *PaymentIdempotencyValidator {
	return &PaymentIdempotencyValidator{ledger: ledger}
}

func (v *PaymentIdempotencyValidator) Validate(ctx context.Context, userID, orderID string, amount float64, method string) (LedgerResult, error) {
	payload := paymentPayload(orderID, amount, method)
	key, err := v.ledger.DeriveKey(userID, domain.OperationPayment, payload)
	if err != nil {
		return LedgerResult{}, err
	}
	return v.ledger.Begin(ctx, domain.OperationPayment, key, payload, BeginMeta{OrderID: orderID, UserID: userID})
}

func (v *PaymentIdempotencyValidator) Complete(ctx context.Context, key, userID, orderID string, amount float64, method string, response []byte) error {
	return v.ledger.MarkCompleted(ctx, domain.OperationPayment, key, paymentPayload(orderID, amount, method), response)
}

func (v *PaymentIdempotencyValidator) Fail(ctx context.Context, key, userID, orderID string, amount float64, method, reason string) error {
	return v.ledger.MarkFailed(ctx, domain.OperationPayment, key, paymentPayload(orderID, amount, method), reason)
}

func paymentPayload(orderID string, amount float64, method string) map[string]any {
	return map[string]any{
		"order_id":       orderID,
		"amount":         amount,
		"payment_method": method,
	}
}
