package domain

import "time"

// OrderState is the single lifecycle state of an order. Orders are only
// mutated through the state machine's transition validator.
type OrderState string

const (
	OrderStateCreated         OrderState = "CREATED"
	OrderStatePaymentPending  OrderState = "PAYMENT_PENDING"
	OrderStatePaid            OrderState = "PAID"
	OrderStatePacked          OrderState = "PACKED"
	OrderStateShipped         OrderState = "SHIPPED"
	OrderStateDelivered       OrderState = "DELIVERED"
	OrderStateCancelled       OrderState = "CANCELLED"
	OrderStateReturnRequested OrderState = "RETURN_REQUESTED"
	OrderStateReturned        OrderState = "RETURNED"
	OrderStateRefunded        OrderState = "REFUNDED"
)

func (s OrderState) Valid() bool {
	switch s {
	case OrderStateCreated, OrderStatePaymentPending, OrderStatePaid,
		OrderStatePacked, OrderStateShipped, OrderStateDelivered,
		OrderStateCancelled, OrderStateReturnRequested, OrderStateReturned,
		OrderStateRefunded:
		return true
	}
	return false
}

type Order struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	OrderID   string     `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	UserID    string     `gorm:"size:64;not null;index" json:"user_id"`
	Amount    float64    `gorm:"not null" json:"amount"`
	State     OrderState `gorm:"size:32;not null;default:CREATED;index" json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
