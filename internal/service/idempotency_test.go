package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

func newLedgerForTest(t *testing.T) *IdempotencyLedger {
	t.Helper()
	db := newServiceDBForTest(t)
	return NewIdempotencyLedger(NewDBIdempotencyStore(db), newTestLogger(), time.Hour)
}

func TestDeriveKeyHourBucket(t *testing.T) {
	ledger := newLedgerForTest(t)
	payload := map[string]any{"order_id": "order-1", "amount": 100.0}

	ledger.now = func() time.Time { return time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC) }
	k1, err := ledger.DeriveKey("user-1", domain.OperationPayment, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	ledger.now = func() time.Time { return time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC) }
	k2, err := ledger.DeriveKey("user-1", domain.OperationPayment, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("same payload within an hour must derive the same key: %s vs %s", k1, k2)
	}
	if !strings.HasSuffix(k1, ":2026030110") {
		t.Fatalf("expected hour bucket suffix, got %s", k1)
	}

	ledger.now = func() time.Time { return time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) }
	k3, err := ledger.DeriveKey("user-1", domain.OperationPayment, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 == k3 {
		t.Fatal("different hour bucket must derive a different key")
	}

	k4, err := ledger.DeriveKey("user-2", domain.OperationPayment, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k3 == k4 {
		t.Fatal("different users must derive different keys")
	}
}

func TestDeriveKeyRefundNotBucketed(t *testing.T) {
	ledger := newLedgerForTest(t)
	payload := map[string]any{"order_id": "order-1", "reason": "damaged"}

	ledger.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	k1, err := ledger.DeriveKey("user-1", domain.OperationRefund, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	ledger.now = func() time.Time { return time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC) }
	k2, err := ledger.DeriveKey("user-1", domain.OperationRefund, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if k1 != k2 {
		t.Fatal("refund keys must not vary with time")
	}
	if !strings.HasSuffix(k1, ":-") {
		t.Fatalf("expected unbucketed refund key, got %s", k1)
	}
}

func TestLedgerBeginOutcomes(t *testing.T) {
	ledger := newLedgerForTest(t)
	ctx := context.Background()
	payload := map[string]any{"order_id": "order-1", "amount": 100.0}

	key, err := ledger.DeriveKey("user-1", domain.OperationPayment, payload)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	first, err := ledger.Begin(ctx, domain.OperationPayment, key, payload, BeginMeta{UserID: "user-1"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if first.Outcome != OutcomeValid {
		t.Fatalf("expected VALID, got %s", first.Outcome)
	}

	pending, err := ledger.Begin(ctx, domain.OperationPayment, key, payload, BeginMeta{})
	if err != nil {
		t.Fatalf("begin twin: %v", err)
	}
	if pending.Outcome != OutcomeInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", pending.Outcome)
	}

	if err := ledger.MarkCompleted(ctx, domain.OperationPayment, key, payload, []byte(`{"txn":"t1"}`)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	dup, err := ledger.Begin(ctx, domain.OperationPayment, key, payload, BeginMeta{})
	if err != nil {
		t.Fatalf("begin duplicate: %v", err)
	}
	if dup.Outcome != OutcomeDuplicate {
		t.Fatalf("expected DUPLICATE, got %s", dup.Outcome)
	}
	if dup.Cached == nil || string(dup.Cached.Body) != `{"txn":"t1"}` {
		t.Fatalf("cached response must be bit-identical, got %+v", dup.Cached)
	}
}

// Key reuse with a different payload is logged and allowed through, never
// treated as a duplicate.
func TestLedgerKeyReuseDifferentContentProceeds(t *testing.T) {
	ledger := newLedgerForTest(t)
	ctx := context.Background()

	payloadA := map[string]any{"order_id": "order-1", "amount": 100.0}
	payloadB := map[string]any{"order_id": "order-2", "amount": 999.0}

	if _, err := ledger.Begin(ctx, domain.OperationCheckout, "shared-key", payloadA, BeginMeta{}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	res, err := ledger.Begin(ctx, domain.OperationCheckout, "shared-key", payloadB, BeginMeta{})
	if err != nil {
		t.Fatalf("begin with reused key: %v", err)
	}
	if res.Outcome != OutcomeValid {
		t.Fatalf("reused key with different content must proceed, got %s", res.Outcome)
	}
}

func TestPaymentIdempotencyValidator(t *testing.T) {
	ledger := newLedgerForTest(t)
	validator := NewPaymentIdempotencyValidator(ledger)
	ctx := context.Background()

	first, err := validator.Validate(ctx, "user-1", "order-1", 499.0, "UPI")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if first.Outcome != OutcomeValid {
		t.Fatalf("expected VALID, got %s", first.Outcome)
	}

	if err := validator.Complete(ctx, first.Key, "user-1", "order-1", 499.0, "UPI", []byte(`{"txn":"t1"}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	second, err := validator.Validate(ctx, "user-1", "order-1", 499.0, "UPI")
	if err != nil {
		t.Fatalf("validate again: %v", err)
	}
	if second.Outcome != OutcomeDuplicate {
		t.Fatalf("expected DUPLICATE, got %s", second.Outcome)
	}

	// A different amount is a different operation.
	other, err := validator.Validate(ctx, "user-1", "order-1", 500.0, "UPI")
	if err != nil {
		t.Fatalf("validate different amount: %v", err)
	}
	if other.Outcome != OutcomeValid {
		t.Fatalf("expected VALID for changed payload, got %s", other.Outcome)
	}
}
