package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

type AuditEvent struct {
	Service      string
	Action       string
	ResourceType string
	ResourceID   string
	UserID       string
	Status       string
	Details      map[string]any
}

// AuditLogger writes every state-changing action to the append-only audit
// ledger and mirrors it to the structured log.
type AuditLogger struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(repo repository.AuditRepository, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	entry := &domain.AuditLogEntry{
		LogID:        "log-" + uuid.NewString(),
		Timestamp:    a.now(),
		Service:      event.Service,
		Action:       event.Action,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		UserID:       event.UserID,
		Status:       event.Status,
	}
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	if err := a.repo.Append(ctx, entry); err != nil {
		// The audit trail must not take the business operation down with it,
		// but a write failure is itself loud.
		a.logger.ErrorContext(ctx, "audit append failed",
			"service", event.Service, "action", event.Action, "error", err)
		return err
	}
	a.logger.InfoContext(ctx, "audit",
		"log_id", entry.LogID,
		"service", event.Service,
		"action", event.Action,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"status", event.Status,
	)
	return nil
}

func (a *AuditLogger) Query(ctx context.Context, filter repository.AuditFilter, page repository.PageRequest) (repository.PageResult[domain.AuditLogEntry], error) {
	return a.repo.Query(ctx, filter, page)
}

// ArchiveBefore streams entries older than cutoff to the archiver in
// batches. Entries are never deleted here; the archive is a copy.
func (a *AuditLogger) ArchiveBefore(ctx context.Context, archiver AuditArchiver, cutoff time.Time, batch int) (int, error) {
	entries, err := a.repo.ListBefore(ctx, cutoff, batch)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	key, err := archiver.Archive(ctx, entries)
	if err != nil {
		return 0, err
	}
	a.logger.InfoContext(ctx, "audit batch archived", "object_key", key, "count", len(entries))
	return len(entries), nil
}
