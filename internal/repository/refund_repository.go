package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

var ErrRefundNotFound = errors.New("refund not found")

type RefundRepository interface {
	Create(ctx context.Context, refund *domain.RefundRecord) error
	FindByRefundID(ctx context.Context, refundID string) (*domain.RefundRecord, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.RefundRecord, error)
	Update(ctx context.Context, refund *domain.RefundRecord) error
}

type GormRefundRepository struct{ db *gorm.DB }

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &GormRefundRepository{db: db}
}

func (r *GormRefundRepository) Create(ctx context.Context, refund *domain.RefundRecord) error {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "refund", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "refund", "create", "success")
	return nil
}

func (r *GormRefundRepository) FindByRefundID(ctx context.Context, refundID string) (*domain.RefundRecord, error) {
	var refund domain.RefundRecord
	err := r.db.WithContext(ctx).Where("refund_id = ?", refundID).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "refund", "find", "not_found")
			return nil, ErrRefundNotFound
		}
		observability.RecordRepositoryOperation(ctx, "refund", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "refund", "find", "success")
	return &refund, nil
}

func (r *GormRefundRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.RefundRecord, error) {
	var refunds []domain.RefundRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").Order("id asc").
		Find(&refunds).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "refund", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "refund", "list", "success")
	return refunds, nil
}

func (r *GormRefundRepository) Update(ctx context.Context, refund *domain.RefundRecord) error {
	res := r.db.WithContext(ctx).Save(refund)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "refund", "update", "error")
		return res.Error
	}
	observability.RecordRepositoryOperation(ctx, "refund", "update", "success")
	return nil
}
