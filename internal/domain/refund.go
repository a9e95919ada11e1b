package domain

import (
	"time"

	"gorm.io/datatypes"
)

type RefundStatus string

const (
	RefundStatusInitiated  RefundStatus = "INITIATED"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusCompleted  RefundStatus = "COMPLETED"
	RefundStatusFailed     RefundStatus = "FAILED"
)

type RefundType string

const (
	RefundTypeFull    RefundType = "FULL"
	RefundTypePartial RefundType = "PARTIAL"
)

// RefundTimelineEntry is one status change in a refund's ordered timeline.
// The timeline is stored as a JSON column and only ever appended to.
type RefundTimelineEntry struct {
	Status RefundStatus `json:"status"`
	Note   string       `json:"note,omitempty"`
	At     time.Time    `json:"at"`
}

type RefundRecord struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	RefundID            string         `gorm:"size:64;not null;uniqueIndex" json:"refund_id"`
	OrderID             string         `gorm:"size:64;not null;index" json:"order_id"`
	TransactionID       string         `gorm:"size:64;not null;index" json:"transaction_id"`
	Amount              float64        `gorm:"not null" json:"amount"`
	Reason              string         `gorm:"size:256;not null" json:"reason"`
	RefundType          RefundType     `gorm:"size:16;not null" json:"refund_type"`
	Status              RefundStatus   `gorm:"size:32;not null;index" json:"status"`
	Timeline            datatypes.JSON `json:"timeline"`
	GatewayReference    string         `gorm:"size:128" json:"gateway_reference,omitempty"`
	EstimatedCompletion time.Time      `json:"estimated_completion"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
