package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

const (
	// addressCorrectionHours is the window to fix a bad address before the
	// order auto-cancels.
	addressCorrectionHours = 48
	maxDeliveryAttempts    = 3
)

// DeliveryFailureHandler covers address errors and failed delivery
// attempts. Severity climbs as attempts run out.
type DeliveryFailureHandler struct {
	refunds *RefundManager
	logger  *slog.Logger
}

func NewDeliveryFailureHandler(refunds *RefundManager, logger *slog.Logger) *DeliveryFailureHandler {
	return &DeliveryFailureHandler{refunds: refunds, logger: logger}
}

func (h *DeliveryFailureHandler) Handle(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	switch fc.FailureType {
	case domain.FailureAddressError:
		return h.handleAddressError(fc), nil
	case domain.FailureDeliveryFailed:
		return h.handleDeliveryFailed(ctx, fc)
	default:
		return domain.FailureResolution{}, fmt.Errorf("delivery handler got %s", fc.FailureType)
	}
}

func (h *DeliveryFailureHandler) handleAddressError(fc domain.FailureContext) domain.FailureResolution {
	return domain.FailureResolution{
		FailureType:        fc.FailureType,
		Severity:           domain.SeverityMedium,
		RecommendedActions: []string{"CORRECT_SHIPPING_ADDRESS"},
		SystemActions: []string{
			"HOLD_FULFILLMENT",
			fmt.Sprintf("AUTO_CANCEL_AFTER_%dH", addressCorrectionHours),
		},
		UserActions:     []string{"CORRECT_SHIPPING_ADDRESS"},
		CustomerMessage: fmt.Sprintf("We could not verify your shipping address. Please correct it within %d hours or the order will be cancelled and refunded.", addressCorrectionHours),
	}
}

func (h *DeliveryFailureHandler) handleDeliveryFailed(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	attempt := detailInt(fc.Details, "attempt")
	if attempt < 1 {
		attempt = 1
	}
	remaining := maxDeliveryAttempts - attempt

	if remaining > 0 {
		severity := domain.SeverityLow
		if remaining == 1 {
			severity = domain.SeverityMedium
		}
		return domain.FailureResolution{
			FailureType:        fc.FailureType,
			Severity:           severity,
			RecommendedActions: []string{"RESCHEDULE_DELIVERY", "CHANGE_ADDRESS", "PICKUP_FROM_HUB"},
			SystemActions:      []string{"RESCHEDULE_DELIVERY"},
			UserActions:        []string{"CHOOSE_RESCHEDULE_OR_PICKUP"},
			CustomerMessage:    fmt.Sprintf("Delivery attempt %d of %d failed. We will try again; you can also change the address or pick up from the nearest hub.", attempt, maxDeliveryAttempts),
		}, nil
	}

	// Attempts exhausted: the parcel goes back and the money comes back.
	amount := detailFloat(fc.Details, "amount")
	transactionID := detailString(fc.Details, "transaction_id")
	if h.refunds != nil && amount > 0 {
		if _, err := h.refunds.InitiateRefund(ctx, fc.OrderID, transactionID, amount, "delivery attempts exhausted", domain.RefundTypeFull); err != nil {
			return domain.FailureResolution{}, fmt.Errorf("initiate delivery-failure refund: %w", err)
		}
	}
	h.logger.WarnContext(ctx, "delivery attempts exhausted",
		"order_id", fc.OrderID, "attempts", attempt)

	return domain.FailureResolution{
		FailureType:     fc.FailureType,
		Severity:        domain.SeverityHigh,
		SystemActions:   []string{"RETURN_TO_WAREHOUSE", "AUTO_REFUND"},
		RefundAmount:    amount,
		CustomerMessage: fmt.Sprintf("We could not deliver your order after %d attempts. It is being returned to our warehouse and a full refund has been started.", maxDeliveryAttempts),
	}, nil
}
