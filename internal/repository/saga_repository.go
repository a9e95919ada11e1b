package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

var ErrSagaNotFound = errors.New("saga transaction not found")

type SagaRepository interface {
	Create(ctx context.Context, txn *domain.SagaTransaction) error
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.SagaTransaction, error)
	Update(ctx context.Context, txn *domain.SagaTransaction) error
}

type GormSagaRepository struct{ db *gorm.DB }

func NewSagaRepository(db *gorm.DB) SagaRepository {
	return &GormSagaRepository{db: db}
}

func (r *GormSagaRepository) Create(ctx context.Context, txn *domain.SagaTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "saga", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "saga", "create", "success")
	return nil
}

func (r *GormSagaRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.SagaTransaction, error) {
	var txn domain.SagaTransaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "saga", "find", "not_found")
			return nil, ErrSagaNotFound
		}
		observability.RecordRepositoryOperation(ctx, "saga", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "saga", "find", "success")
	return &txn, nil
}

func (r *GormSagaRepository) Update(ctx context.Context, txn *domain.SagaTransaction) error {
	if err := r.db.WithContext(ctx).Save(txn).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "saga", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "saga", "update", "success")
	return nil
}
