package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

var ErrTransactionNotFound = errors.New("payment transaction not found")

type PaymentRepository interface {
	Create(ctx context.Context, txn *domain.PaymentTransaction) error
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentTransaction, error)
	CountByOrderAndStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (int64, error)
	// MarkSuccess flips the transaction to SUCCESS in a single conditional
	// statement that also guards the at-most-one-SUCCESS-per-order
	// invariant. Returns false when the guard blocked the update.
	MarkSuccess(ctx context.Context, transactionID, orderID, gatewayRef string) (bool, error)
	MarkFailed(ctx context.Context, transactionID, reason string) error
}

type GormPaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, txn *domain.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "create", "success")
	return nil
}

func (r *GormPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	var txn domain.PaymentTransaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "payment", "find", "not_found")
			return nil, ErrTransactionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "payment", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "find", "success")
	return &txn, nil
}

func (r *GormPaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.PaymentTransaction, error) {
	var txns []domain.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").Order("id asc").
		Find(&txns).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "list", "success")
	return txns, nil
}

func (r *GormPaymentRepository) CountByOrderAndStatus(ctx context.Context, orderID string, status domain.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PaymentTransaction{}).
		Where("order_id = ? AND status = ?", orderID, status).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "count", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "payment", "count", "success")
	return count, nil
}

func (r *GormPaymentRepository) MarkSuccess(ctx context.Context, transactionID, orderID, gatewayRef string) (bool, error) {
	// Single statement so the check and the write cannot interleave with a
	// concurrent callback for the same order. Two callbacks racing on
	// different rows can still both pass the NOT EXISTS guard under READ
	// COMMITTED; the partial unique index on (order_id) WHERE status =
	// 'SUCCESS' rejects the loser, surfaced here as blocked.
	res := r.db.WithContext(ctx).Exec(`
		UPDATE payment_transactions
		SET status = ?, gateway_reference = ?, updated_at = ?
		WHERE transaction_id = ?
		  AND status IN (?, ?)
		  AND NOT EXISTS (
			SELECT 1 FROM payment_transactions p2
			WHERE p2.order_id = ? AND p2.status = ?
		  )`,
		domain.PaymentStatusSuccess, gatewayRef, time.Now().UTC(),
		transactionID,
		domain.PaymentStatusInitiated, domain.PaymentStatusPending,
		orderID, domain.PaymentStatusSuccess,
	)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(ctx, "payment", "mark_success", "blocked")
			return false, nil
		}
		observability.RecordRepositoryOperation(ctx, "payment", "mark_success", "error")
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "payment", "mark_success", "blocked")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "payment", "mark_success", "success")
	return true, nil
}

func (r *GormPaymentRepository) MarkFailed(ctx context.Context, transactionID, reason string) error {
	res := r.db.WithContext(ctx).Model(&domain.PaymentTransaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]any{
			"status":         domain.PaymentStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "payment", "mark_failed", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "payment", "mark_failed", "not_found")
		return ErrTransactionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "payment", "mark_failed", "success")
	return nil
}
