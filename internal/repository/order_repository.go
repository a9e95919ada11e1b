package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrStaleOrderState = errors.New("order state changed concurrently")
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	// TransitionState performs a conditional update: the row only moves to
	// `to` if it is still in `from`. Returns ErrStaleOrderState when a
	// concurrent writer got there first.
	TransitionState(ctx context.Context, orderID string, from, to domain.OrderState) error
}

type GormOrderRepository struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "order", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "order", "create", "success")
	return nil
}

func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "order", "find", "not_found")
			return nil, ErrOrderNotFound
		}
		observability.RecordRepositoryOperation(ctx, "order", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "order", "find", "success")
	return &order, nil
}

func (r *GormOrderRepository) TransitionState(ctx context.Context, orderID string, from, to domain.OrderState) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("order_id = ? AND state = ?", orderID, from).
		Updates(map[string]any{"state": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "order", "transition", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Order{}).
			Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			observability.RecordRepositoryOperation(ctx, "order", "transition", "not_found")
			return ErrOrderNotFound
		}
		observability.RecordRepositoryOperation(ctx, "order", "transition", "stale")
		return ErrStaleOrderState
	}
	observability.RecordRepositoryOperation(ctx, "order", "transition", "success")
	return nil
}
