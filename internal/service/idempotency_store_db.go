package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// DBIdempotencyStore relies on the (scope, key) unique index for the
// insert-if-absent: the losing writer of a concurrent pair gets a
// duplicate-key error and re-reads the winner's row.
type DBIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, meta BeginMeta, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now()

	// Lazy eviction: an expired row for this key no longer counts.
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ? AND expires_at <= ?", scope, key, now).
		Delete(&domain.IdempotencyRecord{}).Error; err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("evict expired record: %w", err)
	}

	rec := domain.IdempotencyRecord{
		Scope:           scope,
		IdempotencyKey:  key,
		OrderID:         meta.OrderID,
		UserID:          meta.UserID,
		FingerprintHash: fingerprint,
		Status:          domain.IdempotencyStatusPending,
		ExpiresAt:       now.Add(ttl),
	}
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return IdempotencyBeginResult{}, fmt.Errorf("insert idempotency record: %w", err)
	}

	var existing domain.IdempotencyRecord
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		First(&existing).Error; err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("load existing record: %w", err)
	}

	if existing.FingerprintHash != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}

	switch existing.Status {
	case domain.IdempotencyStatusCompleted:
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedResponse{
				StatusCode:  existing.ResponseStatus,
				ContentType: existing.ContentType,
				Body:        existing.ResponseBody,
			},
		}, nil
	case domain.IdempotencyStatusFailed:
		// A failed attempt may be retried: supersede with a fresh PENDING
		// record. The conditional WHERE keeps two retries from both winning.
		res := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
			Where("id = ? AND status = ?", existing.ID, domain.IdempotencyStatusFailed).
			Updates(map[string]any{
				"status":         domain.IdempotencyStatusPending,
				"failure_reason": "",
				"created_at":     now,
				"expires_at":     now.Add(ttl),
				"updated_at":     now,
			})
		if res.Error != nil {
			return IdempotencyBeginResult{}, res.Error
		}
		if res.RowsAffected == 0 {
			return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
		}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	default:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedResponse, ttl time.Duration) error {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ?", scope, key, fingerprint).
		Updates(map[string]any{
			"status":          domain.IdempotencyStatusCompleted,
			"response_status": response.StatusCode,
			"response_body":   response.Body,
			"content_type":    response.ContentType,
			"expires_at":      now.Add(ttl),
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no pending idempotency record for scope=%s", scope)
	}
	return nil
}

func (s *DBIdempotencyStore) Fail(ctx context.Context, scope, key, fingerprint, reason string) error {
	res := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ? AND status = ?",
			scope, key, fingerprint, domain.IdempotencyStatusPending).
		Updates(map[string]any{
			"status":         domain.IdempotencyStatusFailed,
			"failure_reason": reason,
			"updated_at":     s.now(),
		})
	return res.Error
}

func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 100
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("expires_at <= ?", now).
		Order("id asc").
		Limit(batch).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}
