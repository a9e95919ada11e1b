package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

var ErrRefundNotCompletable = errors.New("refund is not in a completable status")

// refundWindow is the customer-facing estimate for refund settlement.
const refundWindow = 5 * 24 * time.Hour

// RefundManager owns the refund ledger and its timeline. An order only
// reaches REFUNDED after the refund itself is COMPLETED, never before.
type RefundManager struct {
	refunds repository.RefundRepository
	orders  *OrderStateService
	audit   *AuditLogger
	logger  *slog.Logger
	now     func() time.Time
}

func NewRefundManager(refunds repository.RefundRepository, orders *OrderStateService, audit *AuditLogger, logger *slog.Logger) *RefundManager {
	return &RefundManager{
		refunds: refunds,
		orders:  orders,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *RefundManager) InitiateRefund(ctx context.Context, orderID, transactionID string, amount float64, reason string, refundType domain.RefundType) (*domain.RefundRecord, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive, got %.2f", amount)
	}
	now := m.now()
	timeline, err := encodeTimeline([]domain.RefundTimelineEntry{{
		Status: domain.RefundStatusInitiated,
		Note:   reason,
		At:     now,
	}})
	if err != nil {
		return nil, err
	}
	refund := &domain.RefundRecord{
		RefundID:            "refund-" + uuid.NewString(),
		OrderID:             orderID,
		TransactionID:       transactionID,
		Amount:              amount,
		Reason:              reason,
		RefundType:          refundType,
		Status:              domain.RefundStatusInitiated,
		Timeline:            timeline,
		EstimatedCompletion: now.Add(refundWindow),
	}
	if err := m.refunds.Create(ctx, refund); err != nil {
		return nil, err
	}
	m.auditLog(ctx, "initiate_refund", refund.RefundID, "success", map[string]any{
		"order_id": orderID, "amount": amount, "refund_type": string(refundType), "reason": reason,
	})
	return refund, nil
}

// UpdateRefundStatus appends a timeline entry and persists the new status.
// On COMPLETED it also stamps CompletedAt and moves the order to REFUNDED
// when the order is in a state that allows it.
func (m *RefundManager) UpdateRefundStatus(ctx context.Context, refundID string, status domain.RefundStatus, note string) (*domain.RefundRecord, error) {
	refund, err := m.refunds.FindByRefundID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if refund.Status == domain.RefundStatusCompleted {
		return nil, fmt.Errorf("%w: refund %s already completed", ErrRefundNotCompletable, refundID)
	}

	now := m.now()
	timeline, err := decodeTimeline(refund.Timeline)
	if err != nil {
		return nil, err
	}
	timeline = append(timeline, domain.RefundTimelineEntry{Status: status, Note: note, At: now})
	encoded, err := encodeTimeline(timeline)
	if err != nil {
		return nil, err
	}

	refund.Status = status
	refund.Timeline = encoded
	if status == domain.RefundStatusCompleted {
		refund.CompletedAt = &now
	}
	if err := m.refunds.Update(ctx, refund); err != nil {
		return nil, err
	}

	m.auditLog(ctx, "update_refund_status", refundID, string(status), map[string]any{
		"order_id": refund.OrderID, "note": note,
	})

	if status == domain.RefundStatusCompleted {
		if _, err := m.orders.Transition(ctx, refund.OrderID, domain.OrderStateRefunded); err != nil {
			// The refund stands either way; a transition refusal here means
			// the order is mid-return and will reach REFUNDED later.
			m.logger.WarnContext(ctx, "order not moved to REFUNDED after refund completion",
				"refund_id", refundID, "order_id", refund.OrderID, "error", err)
		}
	}
	return refund, nil
}

func (m *RefundManager) GetRefund(ctx context.Context, refundID string) (*domain.RefundRecord, error) {
	return m.refunds.FindByRefundID(ctx, refundID)
}

func (m *RefundManager) ListByOrder(ctx context.Context, orderID string) ([]domain.RefundRecord, error) {
	return m.refunds.ListByOrder(ctx, orderID)
}

// Timeline returns the decoded ordered timeline of a refund.
func (m *RefundManager) Timeline(ctx context.Context, refundID string) ([]domain.RefundTimelineEntry, error) {
	refund, err := m.refunds.FindByRefundID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	return decodeTimeline(refund.Timeline)
}

// CompensationForInventoryMismatch prices the goodwill package for a paid
// order the warehouse cannot fulfill: full refund, 20% of the price on
// top, and 10x loyalty points.
func CompensationForInventoryMismatch(price float64) domain.CompensationPlan {
	refund := round2(price)
	compensation := round2(price * 0.20)
	return domain.CompensationPlan{
		RefundAmount:       refund,
		CompensationAmount: compensation,
		LoyaltyPoints:      int(math.Floor(price * 10)),
		TotalValue:         round2(refund + compensation),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func encodeTimeline(entries []domain.RefundTimelineEntry) (datatypes.JSON, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode refund timeline: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeTimeline(raw datatypes.JSON) ([]domain.RefundTimelineEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []domain.RefundTimelineEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode refund timeline: %w", err)
	}
	return entries, nil
}

func (m *RefundManager) auditLog(ctx context.Context, action, resourceID, status string, details map[string]any) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Log(ctx, AuditEvent{
		Service:      "refund_manager",
		Action:       action,
		ResourceType: "refund",
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
	})
}
