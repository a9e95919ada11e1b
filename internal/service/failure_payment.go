package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// cartPreserveWindow is how long the cart survives a retryable payment
// failure before the customer has to start over.
const cartPreserveWindow = 5 * time.Minute

var retryablePaymentErrors = map[string]struct{}{
	"INSUFFICIENT_FUNDS": {},
	"NETWORK_ERROR":      {},
	"TIMEOUT":            {},
}

// PaymentFailureHandler covers failed and duplicate payments. A duplicate
// payment is resolved entirely by the system: refund the extra capture,
// keep the original order, alert fraud. The customer does nothing.
type PaymentFailureHandler struct {
	refunds *RefundManager
	logger  *slog.Logger
}

func NewPaymentFailureHandler(refunds *RefundManager, logger *slog.Logger) *PaymentFailureHandler {
	return &PaymentFailureHandler{refunds: refunds, logger: logger}
}

func (h *PaymentFailureHandler) Handle(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	switch fc.FailureType {
	case domain.FailurePaymentFailed:
		return h.handlePaymentFailed(fc), nil
	case domain.FailureDuplicatePayment:
		return h.handleDuplicatePayment(ctx, fc)
	default:
		return domain.FailureResolution{}, fmt.Errorf("payment handler got %s", fc.FailureType)
	}
}

func (h *PaymentFailureHandler) handlePaymentFailed(fc domain.FailureContext) domain.FailureResolution {
	errorCode := detailString(fc.Details, "error_code")
	if _, retryable := retryablePaymentErrors[errorCode]; retryable {
		return domain.FailureResolution{
			FailureType:        fc.FailureType,
			Severity:           domain.SeverityMedium,
			RecommendedActions: []string{"RETRY_PAYMENT"},
			SystemActions:      []string{"PRESERVE_CART"},
			UserActions:        []string{"RETRY_PAYMENT"},
			CustomerMessage: fmt.Sprintf(
				"Your payment did not go through. We have saved your cart for %d minutes so you can retry.",
				int(cartPreserveWindow.Minutes())),
		}
	}
	return domain.FailureResolution{
		FailureType:        fc.FailureType,
		Severity:           domain.SeverityMedium,
		RecommendedActions: []string{"USE_DIFFERENT_PAYMENT_METHOD"},
		UserActions:        []string{"USE_DIFFERENT_PAYMENT_METHOD"},
		CustomerMessage:    "Your payment was declined. Please try a different payment method.",
	}
}

func (h *PaymentFailureHandler) handleDuplicatePayment(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	amount := detailFloat(fc.Details, "amount")
	duplicateTxn := detailString(fc.Details, "duplicate_transaction_id")

	if h.refunds != nil && amount > 0 {
		if _, err := h.refunds.InitiateRefund(ctx, fc.OrderID, duplicateTxn, amount, "duplicate payment capture", domain.RefundTypeFull); err != nil {
			return domain.FailureResolution{}, fmt.Errorf("initiate duplicate-payment refund: %w", err)
		}
	}
	h.logger.ErrorContext(ctx, "duplicate payment auto-refunded",
		"order_id", fc.OrderID, "duplicate_transaction_id", duplicateTxn, "amount", amount)

	return domain.FailureResolution{
		FailureType: fc.FailureType,
		Severity:    domain.SeverityCritical,
		SystemActions: []string{
			"AUTO_REFUND_DUPLICATE",
			"KEEP_ORIGINAL_ORDER",
			"ALERT_FRAUD_TEAM",
		},
		RefundAmount:    amount,
		CustomerMessage: "We detected a duplicate charge on your order and have already started the refund. Your order is unaffected and no action is needed.",
	}, nil
}
