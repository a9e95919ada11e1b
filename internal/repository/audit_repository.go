package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

// AuditFilter narrows an audit query. Zero values mean "any".
type AuditFilter struct {
	Service      string
	Action       string
	ResourceType string
	ResourceID   string
	UserID       string
	Status       string
	Since        *time.Time
	Until        *time.Time
}

// AuditRepository is append-and-read only. There is deliberately no
// update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	Query(ctx context.Context, filter AuditFilter, page PageRequest) (PageResult[domain.AuditLogEntry], error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.AuditLogEntry, error)
}

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "audit", "append", "success")
	return nil
}

func (r *GormAuditRepository) Query(ctx context.Context, filter AuditFilter, page PageRequest) (PageResult[domain.AuditLogEntry], error) {
	page = normalizePageRequest(page)
	q := r.db.WithContext(ctx).Model(&domain.AuditLogEntry{})
	if filter.Service != "" {
		q = q.Where("service = ?", filter.Service)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Since != nil {
		q = q.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("timestamp < ?", *filter.Until)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "query", "error")
		return PageResult[domain.AuditLogEntry]{}, err
	}

	var items []domain.AuditLogEntry
	err := q.Order("timestamp desc").Order("id desc").
		Offset((page.Page - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "query", "error")
		return PageResult[domain.AuditLogEntry]{}, err
	}
	observability.RecordRepositoryOperation(ctx, "audit", "query", "success")
	return PageResult[domain.AuditLogEntry]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: calcTotalPages(total, page.PageSize),
	}, nil
}

func (r *GormAuditRepository) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var items []domain.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Order("timestamp asc").Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "audit", "list_before", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "audit", "list_before", "success")
	return items, nil
}
