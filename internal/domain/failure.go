package domain

// FailureType is the closed set of failure categories the orchestrator
// dispatches on. Anything else resolves to the UNKNOWN severity path.
type FailureType string

const (
	FailureOutOfStock         FailureType = "OUT_OF_STOCK"
	FailureInventoryMismatch  FailureType = "INVENTORY_MISMATCH"
	FailurePaymentFailed      FailureType = "PAYMENT_FAILED"
	FailureDuplicatePayment   FailureType = "DUPLICATE_PAYMENT"
	FailureCancelAfterPayment FailureType = "CANCEL_AFTER_PAYMENT"
	FailureAddressError       FailureType = "ADDRESS_ERROR"
	FailureDeliveryFailed     FailureType = "DELIVERY_FAILED"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
	SeverityUnknown  Severity = "UNKNOWN"
)

// FailureContext is the immutable input to the failure orchestrator.
type FailureContext struct {
	OrderID      string         `json:"order_id"`
	UserID       string         `json:"user_id"`
	FailureType  FailureType    `json:"failure_type"`
	CurrentState OrderState     `json:"current_state"`
	Details      map[string]any `json:"details,omitempty"`
}

// CompensationPlan is the goodwill package for a paid order the system
// failed to fulfill: full refund, 20% goodwill, 10x loyalty points.
type CompensationPlan struct {
	RefundAmount       float64 `json:"refund_amount"`
	CompensationAmount float64 `json:"compensation_amount"`
	LoyaltyPoints      int     `json:"loyalty_points"`
	TotalValue         float64 `json:"total_value"`
}

// FailureResolution is computed on demand and never persisted; executing
// and auditing the contained actions is the caller's responsibility.
type FailureResolution struct {
	FailureType        FailureType       `json:"failure_type"`
	Severity           Severity          `json:"severity"`
	RecommendedActions []string          `json:"recommended_actions,omitempty"`
	SystemActions      []string          `json:"system_actions,omitempty"`
	UserActions        []string          `json:"user_actions,omitempty"`
	Compensation       *CompensationPlan `json:"compensation,omitempty"`
	CustomerMessage    string            `json:"customer_message"`
	Allowed            bool              `json:"allowed"`
	RefundAmount       float64           `json:"refund_amount,omitempty"`
	TransitionTarget   OrderState        `json:"transition_target,omitempty"`
}
