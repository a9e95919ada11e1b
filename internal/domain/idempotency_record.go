package domain

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusPending   IdempotencyStatus = "PENDING"
	IdempotencyStatusCompleted IdempotencyStatus = "COMPLETED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// OperationType scopes idempotency keys to the operation being deduplicated.
type OperationType string

const (
	OperationCheckout OperationType = "checkout"
	OperationPayment  OperationType = "payment"
	OperationRefund   OperationType = "refund"
)

type IdempotencyRecord struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Scope           string            `gorm:"size:64;not null;uniqueIndex:idx_idempotency_scope_key" json:"-"`
	IdempotencyKey  string            `gorm:"size:256;not null;uniqueIndex:idx_idempotency_scope_key" json:"-"`
	OrderID         string            `gorm:"size:64;index" json:"order_id,omitempty"`
	UserID          string            `gorm:"size:64" json:"user_id,omitempty"`
	FingerprintHash string            `gorm:"size:128;not null" json:"-"`
	Status          IdempotencyStatus `gorm:"size:32;not null;index" json:"-"`
	ResponseStatus  int               `json:"-"`
	ResponseBody    []byte            `gorm:"type:bytes" json:"-"`
	ContentType     string            `gorm:"size:128" json:"-"`
	FailureReason   string            `gorm:"size:256" json:"-"`
	ExpiresAt       time.Time         `gorm:"index;not null" json:"-"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
