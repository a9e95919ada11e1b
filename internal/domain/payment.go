package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentTransaction records a single payment attempt against an order.
// Invariant: at most one transaction per order ever reaches SUCCESS.
type PaymentTransaction struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TransactionID    string        `gorm:"size:64;not null;uniqueIndex" json:"transaction_id"`
	OrderID          string        `gorm:"size:64;not null;index" json:"order_id"`
	UserID           string        `gorm:"size:64;not null;index" json:"user_id"`
	Amount           float64       `gorm:"not null" json:"amount"`
	PaymentMethod    string        `gorm:"size:32;not null" json:"payment_method"`
	Status           PaymentStatus `gorm:"size:32;not null;index" json:"status"`
	GatewayReference string        `gorm:"size:128" json:"gateway_reference"`
	IdempotencyKey   string        `gorm:"size:256;index" json:"-"`
	FailureReason    string        `gorm:"size:256" json:"failure_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
