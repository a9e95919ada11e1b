package domain

import (
	"time"

	"gorm.io/datatypes"
)

type SagaStatus string

const (
	SagaStatusStarted    SagaStatus = "STARTED"
	SagaStatusInProgress SagaStatus = "IN_PROGRESS"
	SagaStatusCommitted  SagaStatus = "COMMITTED"
	SagaStatusRolledBack SagaStatus = "ROLLED_BACK"
	SagaStatusFailed     SagaStatus = "FAILED"
)

type SagaStepStatus string

const (
	SagaStepCompleted        SagaStepStatus = "COMPLETED"
	SagaStepRolledBack       SagaStepStatus = "ROLLED_BACK"
	SagaStepRollbackFailed   SagaStepStatus = "ROLLBACK_FAILED"
	SagaStepNoRollbackAction SagaStepStatus = "NO_ROLLBACK_ACTION"
)

// SagaStepRecord is the persisted view of one forward step. Compensating
// actions themselves live in process memory; only their outcomes are stored.
type SagaStepRecord struct {
	Name   string         `json:"name"`
	Status SagaStepStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
	At     time.Time      `json:"at"`
}

type SagaTransaction struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TransactionID string         `gorm:"size:64;not null;uniqueIndex" json:"transaction_id"`
	Type          string         `gorm:"size:64;not null" json:"type"`
	Status        SagaStatus     `gorm:"size:32;not null;index" json:"status"`
	Steps         datatypes.JSON `json:"steps"`
	FailureReason string         `gorm:"size:256" json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
