package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// InventoryFailureHandler covers the pre-payment and post-payment stock
// failures. Post-payment mismatch is the worst case: the customer paid for
// something the warehouse does not have.
type InventoryFailureHandler struct {
	inventory InventoryService
	refunds   *RefundManager
	loyalty   LoyaltyService
	logger    *slog.Logger
}

func NewInventoryFailureHandler(inventory InventoryService, refunds *RefundManager, loyalty LoyaltyService, logger *slog.Logger) *InventoryFailureHandler {
	return &InventoryFailureHandler{inventory: inventory, refunds: refunds, loyalty: loyalty, logger: logger}
}

func (h *InventoryFailureHandler) Handle(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	switch fc.FailureType {
	case domain.FailureOutOfStock:
		return h.handleOutOfStock(ctx, fc)
	case domain.FailureInventoryMismatch:
		return h.handleMismatch(ctx, fc)
	default:
		return domain.FailureResolution{}, fmt.Errorf("inventory handler got %s", fc.FailureType)
	}
}

// handleOutOfStock blocks checkout before any payment is taken. Payment
// state is untouched on this path.
func (h *InventoryFailureHandler) handleOutOfStock(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	itemID := detailString(fc.Details, "item_id")
	available := detailInt(fc.Details, "available_quantity")

	recommended := []string{
		"OFFER_AVAILABLE_QUANTITY",
		"SUGGEST_ALTERNATE_STORES",
		"SUGGEST_SIMILAR_PRODUCTS",
		"OFFER_WAITLIST",
	}
	if h.inventory != nil && itemID != "" {
		if inStock, err := h.inventory.CheckStock(ctx, itemID, 1); err == nil && !inStock {
			recommended = recommended[1:]
		}
	}

	msg := "This item is currently out of stock. You can join the waitlist or pick a similar product."
	if available > 0 {
		msg = fmt.Sprintf("Only %d of this item are available right now. You can order the available quantity, join the waitlist, or pick a similar product.", available)
	}
	return domain.FailureResolution{
		FailureType:        fc.FailureType,
		Severity:           domain.SeverityHigh,
		RecommendedActions: recommended,
		SystemActions:      []string{"BLOCK_CHECKOUT"},
		CustomerMessage:    msg,
	}, nil
}

// handleMismatch is the paid-but-unfulfillable path: full refund plus the
// goodwill package, the stock record locked for audit, and never a silent
// product substitution.
func (h *InventoryFailureHandler) handleMismatch(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	price := detailFloat(fc.Details, "price")
	itemID := detailString(fc.Details, "item_id")
	transactionID := detailString(fc.Details, "transaction_id")

	plan := CompensationForInventoryMismatch(price)

	if h.refunds != nil && price > 0 {
		reason := "inventory mismatch after payment"
		if _, err := h.refunds.InitiateRefund(ctx, fc.OrderID, transactionID, plan.RefundAmount, reason, domain.RefundTypeFull); err != nil {
			return domain.FailureResolution{}, fmt.Errorf("initiate mismatch refund: %w", err)
		}
	}
	if h.loyalty != nil && plan.LoyaltyPoints > 0 {
		if err := h.loyalty.CreditPoints(ctx, fc.UserID, plan.LoyaltyPoints, "inventory mismatch goodwill"); err != nil {
			h.logger.WarnContext(ctx, "loyalty credit failed", "order_id", fc.OrderID, "error", err)
		}
	}
	if h.inventory != nil && itemID != "" {
		if err := h.inventory.LockRecord(ctx, itemID, "inventory mismatch on order "+fc.OrderID); err != nil {
			h.logger.WarnContext(ctx, "inventory record lock failed", "item_id", itemID, "error", err)
		}
	}

	return domain.FailureResolution{
		FailureType: fc.FailureType,
		Severity:    domain.SeverityCritical,
		SystemActions: []string{
			"INITIATE_FULL_REFUND",
			"CREDIT_LOYALTY_POINTS",
			"LOCK_INVENTORY_RECORD",
		},
		UserActions:     []string{"CHOOSE_REPLACEMENT_OR_REFUND"},
		Compensation:    &plan,
		RefundAmount:    plan.RefundAmount,
		CustomerMessage: fmt.Sprintf("We are sorry: the item you paid for is unavailable. A full refund of %.2f plus %.2f goodwill and %d loyalty points is on its way. If you prefer a replacement, choose one and we will prioritize it.", plan.RefundAmount, plan.CompensationAmount, plan.LoyaltyPoints),
	}, nil
}

func detailString(details map[string]any, key string) string {
	if v, ok := details[key].(string); ok {
		return v
	}
	return ""
}

func detailFloat(details map[string]any, key string) float64 {
	switch v := details[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func detailInt(details map[string]any, key string) int {
	switch v := details[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
