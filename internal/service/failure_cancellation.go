package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// CancellationFailureHandler resolves cancel-after-payment requests. All
// legality questions are answered by the state machine; this handler only
// attaches the money side.
type CancellationFailureHandler struct {
	orders    *OrderStateService
	refunds   *RefundManager
	inventory InventoryService
	gateway   PaymentGateway
	logger    *slog.Logger
}

func NewCancellationFailureHandler(orders *OrderStateService, refunds *RefundManager, inventory InventoryService, gateway PaymentGateway, logger *slog.Logger) *CancellationFailureHandler {
	return &CancellationFailureHandler{
		orders:    orders,
		refunds:   refunds,
		inventory: inventory,
		gateway:   gateway,
		logger:    logger,
	}
}

func (h *CancellationFailureHandler) Handle(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	machine := h.orders.Machine()
	action := machine.CancelAction(fc.CurrentState)

	switch action.Action {
	case CancelNoRefund:
		if _, err := h.orders.Transition(ctx, fc.OrderID, domain.OrderStateCancelled); err != nil {
			return domain.FailureResolution{}, fmt.Errorf("cancel order %s: %w", fc.OrderID, err)
		}
		return domain.FailureResolution{
			FailureType:      fc.FailureType,
			Severity:         domain.SeverityLow,
			Allowed:          true,
			SystemActions:    []string{"CANCEL_ORDER"},
			TransitionTarget: domain.OrderStateCancelled,
			CustomerMessage:  "Your order has been cancelled. No payment was taken.",
		}, nil

	case CancelWithFullRefund:
		amount := detailFloat(fc.Details, "amount")
		transactionID := detailString(fc.Details, "transaction_id")
		itemID := detailString(fc.Details, "item_id")

		if _, err := h.orders.Transition(ctx, fc.OrderID, domain.OrderStateCancelled); err != nil {
			return domain.FailureResolution{}, fmt.Errorf("cancel order %s: %w", fc.OrderID, err)
		}
		if h.refunds != nil && amount > 0 {
			if _, err := h.refunds.InitiateRefund(ctx, fc.OrderID, transactionID, amount, "cancellation after payment", domain.RefundTypeFull); err != nil {
				return domain.FailureResolution{}, fmt.Errorf("initiate cancellation refund: %w", err)
			}
		}
		if h.inventory != nil && itemID != "" {
			if err := h.inventory.Release(ctx, fc.OrderID, itemID); err != nil {
				h.logger.WarnContext(ctx, "inventory release failed on cancel",
					"order_id", fc.OrderID, "item_id", itemID, "error", err)
			}
		}
		if h.gateway != nil && transactionID != "" {
			if err := h.gateway.ReleaseHold(ctx, transactionID); err != nil {
				h.logger.WarnContext(ctx, "payment hold release failed on cancel",
					"order_id", fc.OrderID, "transaction_id", transactionID, "error", err)
			}
		}
		return domain.FailureResolution{
			FailureType:      fc.FailureType,
			Severity:         domain.SeverityMedium,
			Allowed:          true,
			SystemActions:    []string{"CANCEL_ORDER", "INITIATE_FULL_REFUND", "RELEASE_INVENTORY_HOLD"},
			RefundAmount:     amount,
			TransitionTarget: domain.OrderStateCancelled,
			CustomerMessage:  fmt.Sprintf("Your order has been cancelled and a full refund of %.2f is on its way.", amount),
		}, nil

	case CancelExchangeOnly:
		return domain.FailureResolution{
			FailureType:        fc.FailureType,
			Severity:           domain.SeverityLow,
			Allowed:            false,
			RecommendedActions: []string{"REQUEST_EXCHANGE"},
			UserActions:        []string{"REQUEST_EXCHANGE"},
			CustomerMessage:    "Your order is already packed, so it cannot be cancelled. You can request an exchange once it arrives.",
		}, nil

	case CancelReturnFlow:
		return domain.FailureResolution{
			FailureType:        fc.FailureType,
			Severity:           domain.SeverityLow,
			Allowed:            false,
			RecommendedActions: []string{string(CancelReturnFlow)},
			UserActions:        []string{"INITIATE_RETURN"},
			CustomerMessage:    "Your order is already on its way. Once it arrives you can start a return for a full refund.",
		}, nil

	default:
		return domain.FailureResolution{
			FailureType:     fc.FailureType,
			Severity:        domain.SeverityLow,
			Allowed:         false,
			CustomerMessage: action.Description,
		}, nil
	}
}
