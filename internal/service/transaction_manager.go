package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

var ErrTransactionFinished = errors.New("transaction already committed or rolled back")

// CompensatingAction undoes one completed forward step. It receives the
// rollback data captured when the step completed.
type CompensatingAction func(ctx context.Context, rollbackData map[string]any) error

type sagaStep struct {
	name         string
	rollbackData map[string]any
	compensate   CompensatingAction
}

// StepOutcome is one line of a rollback report.
type StepOutcome struct {
	Name   string                `json:"name"`
	Status domain.SagaStepStatus `json:"status"`
	Error  string                `json:"error,omitempty"`
}

type RollbackReport struct {
	TransactionID string        `json:"transaction_id"`
	Reason        string        `json:"reason"`
	Steps         []StepOutcome `json:"steps"`
}

// Transaction is a single multi-step operation with compensations. Steps
// are registered as they complete; Rollback undoes them newest-first.
// Compensating actions live only in process memory, so a Transaction must
// finish within the process that started it. The persisted record carries
// the step outcomes for audit.
type Transaction struct {
	id      string
	kind    string
	status  domain.SagaStatus
	steps   []sagaStep
	manager *TransactionManager
}

func (t *Transaction) ID() string { return t.id }

// TransactionManager creates transactions and persists their lifecycle.
type TransactionManager struct {
	sagas  repository.SagaRepository
	audit  *AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

func NewTransactionManager(sagas repository.SagaRepository, audit *AuditLogger, logger *slog.Logger) *TransactionManager {
	return &TransactionManager{
		sagas:  sagas,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *TransactionManager) Begin(ctx context.Context, kind string) (*Transaction, error) {
	txn := &Transaction{
		id:      "saga-" + uuid.NewString(),
		kind:    kind,
		status:  domain.SagaStatusStarted,
		manager: m,
	}
	record := &domain.SagaTransaction{
		TransactionID: txn.id,
		Type:          kind,
		Status:        domain.SagaStatusStarted,
	}
	if err := m.sagas.Create(ctx, record); err != nil {
		return nil, err
	}
	return txn, nil
}

// AddStep registers a completed forward step. Steps are prepended so that
// rollback iterates in reverse completion order without re-sorting.
// A nil compensate marks the step as having no rollback action.
func (t *Transaction) AddStep(ctx context.Context, name string, rollbackData map[string]any, compensate CompensatingAction) error {
	if t.status == domain.SagaStatusCommitted || t.status == domain.SagaStatusRolledBack {
		return fmt.Errorf("%w: %s", ErrTransactionFinished, t.id)
	}
	t.steps = append([]sagaStep{{name: name, rollbackData: rollbackData, compensate: compensate}}, t.steps...)
	t.status = domain.SagaStatusInProgress
	return t.persist(ctx, "", nil)
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.status == domain.SagaStatusCommitted || t.status == domain.SagaStatusRolledBack {
		return fmt.Errorf("%w: %s", ErrTransactionFinished, t.id)
	}
	t.status = domain.SagaStatusCommitted
	if err := t.persist(ctx, "", nil); err != nil {
		return err
	}
	t.manager.auditLog(ctx, "commit", t.id, "success", map[string]any{"type": t.kind, "steps": len(t.steps)})
	return nil
}

// Rollback undoes completed steps newest-first. A failing compensation is
// recorded and never halts the remaining compensations; the transaction
// ends ROLLED_BACK regardless so the caller always gets a full report.
func (t *Transaction) Rollback(ctx context.Context, reason string) (RollbackReport, error) {
	if t.status == domain.SagaStatusCommitted || t.status == domain.SagaStatusRolledBack {
		return RollbackReport{}, fmt.Errorf("%w: %s", ErrTransactionFinished, t.id)
	}

	report := RollbackReport{TransactionID: t.id, Reason: reason}
	for _, step := range t.steps {
		outcome := StepOutcome{Name: step.name}
		switch {
		case step.compensate == nil:
			outcome.Status = domain.SagaStepNoRollbackAction
		default:
			if err := step.compensate(ctx, step.rollbackData); err != nil {
				outcome.Status = domain.SagaStepRollbackFailed
				outcome.Error = err.Error()
				t.manager.logger.ErrorContext(ctx, "saga compensation failed",
					"transaction_id", t.id, "step", step.name, "error", err)
			} else {
				outcome.Status = domain.SagaStepRolledBack
			}
		}
		report.Steps = append(report.Steps, outcome)
	}

	t.status = domain.SagaStatusRolledBack
	if err := t.persist(ctx, reason, report.Steps); err != nil {
		return report, err
	}
	t.manager.auditLog(ctx, "rollback", t.id, "rolled_back", map[string]any{
		"type": t.kind, "reason": reason, "steps": len(report.Steps),
	})
	return report, nil
}

func (t *Transaction) persist(ctx context.Context, failureReason string, outcomes []StepOutcome) error {
	record, err := t.manager.sagas.FindByTransactionID(ctx, t.id)
	if err != nil {
		return err
	}
	record.Status = t.status
	record.FailureReason = failureReason

	now := t.manager.now()
	entries := make([]domain.SagaStepRecord, 0, len(t.steps))
	if outcomes != nil {
		for _, outcome := range outcomes {
			entries = append(entries, domain.SagaStepRecord{
				Name:   outcome.Name,
				Status: outcome.Status,
				Error:  outcome.Error,
				At:     now,
			})
		}
	} else {
		// Forward progress: every registered step is COMPLETED, listed in
		// completion order.
		for i := len(t.steps) - 1; i >= 0; i-- {
			entries = append(entries, domain.SagaStepRecord{
				Name:   t.steps[i].name,
				Status: domain.SagaStepCompleted,
				At:     now,
			})
		}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode saga steps: %w", err)
	}
	record.Steps = datatypes.JSON(raw)
	return t.manager.sagas.Update(ctx, record)
}

func (m *TransactionManager) auditLog(ctx context.Context, action, resourceID, status string, details map[string]any) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Log(ctx, AuditEvent{
		Service:      "transaction_manager",
		Action:       action,
		ResourceType: "saga_transaction",
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
	})
}
