package repository

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

func seedPayment(t *testing.T, repo PaymentRepository, txnID, orderID string, status domain.PaymentStatus) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.PaymentTransaction{
		TransactionID: txnID,
		OrderID:       orderID,
		UserID:        "user-1",
		Amount:        499,
		PaymentMethod: "UPI",
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", txnID, err)
	}
}

func TestMarkSuccessGuardsOneSuccessPerOrder(t *testing.T) {
	repo := NewPaymentRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	seedPayment(t, repo, "txn-1", "order-1", domain.PaymentStatusInitiated)
	seedPayment(t, repo, "txn-2", "order-1", domain.PaymentStatusInitiated)

	updated, err := repo.MarkSuccess(ctx, "txn-1", "order-1", "gw-1")
	if err != nil {
		t.Fatalf("mark first: %v", err)
	}
	if !updated {
		t.Fatal("first capture must go through")
	}

	updated, err = repo.MarkSuccess(ctx, "txn-2", "order-1", "gw-2")
	if err != nil {
		t.Fatalf("mark second: %v", err)
	}
	if updated {
		t.Fatal("second capture for the same order must be blocked")
	}

	count, err := repo.CountByOrderAndStatus(ctx, "order-1", domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one SUCCESS, got %d", count)
	}

	// The blocked transaction keeps its status for the caller to fail it.
	blocked, err := repo.FindByTransactionID(ctx, "txn-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if blocked.Status != domain.PaymentStatusInitiated {
		t.Fatalf("blocked txn must be untouched, got %s", blocked.Status)
	}
}

func TestMarkSuccessOnlyFromPendingStates(t *testing.T) {
	repo := NewPaymentRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	seedPayment(t, repo, "txn-1", "order-1", domain.PaymentStatusFailed)
	updated, err := repo.MarkSuccess(ctx, "txn-1", "order-1", "gw-1")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if updated {
		t.Fatal("a FAILED transaction must not become SUCCESS")
	}
}

func TestMarkFailed(t *testing.T) {
	repo := NewPaymentRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	seedPayment(t, repo, "txn-1", "order-1", domain.PaymentStatusInitiated)
	if err := repo.MarkFailed(ctx, "txn-1", "gateway declined"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, err := repo.FindByTransactionID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != domain.PaymentStatusFailed || got.FailureReason != "gateway declined" {
		t.Fatalf("unexpected txn: %+v", got)
	}

	if err := repo.MarkFailed(ctx, "missing", "x"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestListByOrderOrdering(t *testing.T) {
	repo := NewPaymentRepository(newRepositoryDBForTest(t))
	ctx := context.Background()

	seedPayment(t, repo, "txn-1", "order-1", domain.PaymentStatusInitiated)
	seedPayment(t, repo, "txn-2", "order-1", domain.PaymentStatusFailed)
	seedPayment(t, repo, "txn-other", "order-2", domain.PaymentStatusInitiated)

	txns, err := repo.ListByOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 2 || txns[0].TransactionID != "txn-1" || txns[1].TransactionID != "txn-2" {
		t.Fatalf("expected [txn-1 txn-2], got %+v", txns)
	}
}

func TestSecondSuccessRowRejectedByStorage(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	seedPayment(t, repo, "txn-1", "order-1", domain.PaymentStatusInitiated)
	seedPayment(t, repo, "txn-2", "order-1", domain.PaymentStatusInitiated)

	if updated, err := repo.MarkSuccess(ctx, "txn-1", "order-1", "gw-1"); err != nil || !updated {
		t.Fatalf("mark first: updated=%v err=%v", updated, err)
	}

	// A writer whose statement snapshot predates the first SUCCESS slips
	// past the NOT EXISTS guard. Write the row directly to take the guard
	// out of the picture; the unique index must reject it.
	err := db.Exec(`UPDATE payment_transactions SET status = ? WHERE transaction_id = ?`,
		domain.PaymentStatusSuccess, "txn-2").Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicate-key rejection, got %v", err)
	}

	count, err := repo.CountByOrderAndStatus(ctx, "order-1", domain.PaymentStatusSuccess)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one SUCCESS row, got %d", count)
	}
}
