package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

var ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")

// amountTolerance absorbs gateway rounding on callback amounts.
const amountTolerance = 0.01

var supportedPaymentMethods = map[string]struct{}{
	"CARD":       {},
	"UPI":        {},
	"NETBANKING": {},
	"WALLET":     {},
	"COD":        {},
}

type PaymentAction string

const (
	ActionUpdateOrderState         PaymentAction = "UPDATE_ORDER_STATE"
	ActionCallbackValidationFailed PaymentAction = "CALLBACK_VALIDATION_FAILED"
	ActionAlertFraudTeam           PaymentAction = "ALERT_FRAUD_TEAM"
	ActionDuplicatePaymentDetected PaymentAction = "DUPLICATE_PAYMENT_DETECTED"
	ActionProceedToShip            PaymentAction = "PROCEED_TO_SHIP"
	ActionHoldShipment             PaymentAction = "HOLD_SHIPMENT"
	ActionHoldShipmentInvestigate  PaymentAction = "HOLD_SHIPMENT_AND_INVESTIGATE"
)

// CallbackData is what the gateway posts back after processing a payment.
type CallbackData struct {
	OrderID           string  `json:"order_id"`
	Amount            float64 `json:"amount"`
	IdempotencyKey    string  `json:"idempotency_key"`
	SignatureVerified bool    `json:"signature_verified"`
}

type PaymentResult struct {
	OK          bool                       `json:"ok"`
	Action      PaymentAction              `json:"action"`
	Actions     []PaymentAction            `json:"actions,omitempty"`
	Reason      string                     `json:"reason,omitempty"`
	Transaction *domain.PaymentTransaction `json:"transaction,omitempty"`
}

// PaymentSafetyManager owns the payment transaction ledger and the two
// integrity checks around it: callback field validation and the
// at-most-one-SUCCESS-per-order invariant.
type PaymentSafetyManager struct {
	payments repository.PaymentRepository
	audit    *AuditLogger
	logger   *slog.Logger
}

func NewPaymentSafetyManager(payments repository.PaymentRepository, audit *AuditLogger, logger *slog.Logger) *PaymentSafetyManager {
	return &PaymentSafetyManager{payments: payments, audit: audit, logger: logger}
}

func (m *PaymentSafetyManager) InitiatePayment(ctx context.Context, orderID, userID string, amount float64, method, idempotencyKey string) (*domain.PaymentTransaction, error) {
	if _, ok := supportedPaymentMethods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, method)
	}
	txn := &domain.PaymentTransaction{
		TransactionID:  "txn-" + uuid.NewString(),
		OrderID:        orderID,
		UserID:         userID,
		Amount:         amount,
		PaymentMethod:  method,
		Status:         domain.PaymentStatusInitiated,
		IdempotencyKey: idempotencyKey,
	}
	if err := m.payments.Create(ctx, txn); err != nil {
		return nil, err
	}
	m.auditLog(ctx, "initiate_payment", txn.TransactionID, userID, "success", map[string]any{
		"order_id": orderID, "amount": amount, "method": method,
	})
	return txn, nil
}

// ProcessPaymentCallback validates the gateway callback against the
// recorded transaction. A mismatch on any field marks the transaction
// FAILED and alerts the fraud team; order state never advances on that
// path. A valid callback that loses the single-SUCCESS race is reported
// as a duplicate payment, never silently accepted.
func (m *PaymentSafetyManager) ProcessPaymentCallback(ctx context.Context, transactionID string, cb CallbackData, gatewayRef string) (PaymentResult, error) {
	txn, err := m.payments.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return PaymentResult{}, err
	}

	if reason := m.validateCallback(txn, cb); reason != "" {
		if err := m.payments.MarkFailed(ctx, transactionID, reason); err != nil {
			return PaymentResult{}, err
		}
		m.logger.ErrorContext(ctx, "payment callback validation failed",
			"transaction_id", transactionID, "order_id", txn.OrderID, "reason", reason)
		m.auditLog(ctx, "payment_callback", transactionID, txn.UserID, "validation_failed", map[string]any{
			"order_id": txn.OrderID, "reason": reason,
		})
		return PaymentResult{
			Action:  ActionCallbackValidationFailed,
			Actions: []PaymentAction{ActionCallbackValidationFailed, ActionAlertFraudTeam},
			Reason:  reason,
		}, nil
	}

	updated, err := m.payments.MarkSuccess(ctx, transactionID, txn.OrderID, gatewayRef)
	if err != nil {
		return PaymentResult{}, err
	}
	if !updated {
		// Another transaction for this order already holds SUCCESS, or this
		// one left the INITIATED/PENDING window. Either way a second capture
		// is a critical anomaly.
		m.logger.ErrorContext(ctx, "duplicate payment capture blocked",
			"transaction_id", transactionID, "order_id", txn.OrderID)
		m.auditLog(ctx, "payment_callback", transactionID, txn.UserID, "duplicate_blocked", map[string]any{
			"order_id": txn.OrderID,
		})
		return PaymentResult{
			Action:  ActionDuplicatePaymentDetected,
			Actions: []PaymentAction{ActionDuplicatePaymentDetected, ActionAlertFraudTeam},
			Reason:  "a successful payment already exists for this order",
		}, nil
	}

	txn.Status = domain.PaymentStatusSuccess
	txn.GatewayReference = gatewayRef
	m.auditLog(ctx, "payment_callback", transactionID, txn.UserID, "success", map[string]any{
		"order_id": txn.OrderID, "gateway_reference": gatewayRef,
	})
	return PaymentResult{OK: true, Action: ActionUpdateOrderState, Transaction: txn}, nil
}

func (m *PaymentSafetyManager) validateCallback(txn *domain.PaymentTransaction, cb CallbackData) string {
	if !cb.SignatureVerified {
		return "gateway signature not verified"
	}
	if cb.OrderID != txn.OrderID {
		return fmt.Sprintf("order id mismatch: callback=%s recorded=%s", cb.OrderID, txn.OrderID)
	}
	if math.Abs(cb.Amount-txn.Amount) > amountTolerance {
		return fmt.Sprintf("amount mismatch: callback=%.2f recorded=%.2f", cb.Amount, txn.Amount)
	}
	if cb.IdempotencyKey != txn.IdempotencyKey {
		return "idempotency key mismatch"
	}
	return ""
}

// ValidateBeforeShipment scans every transaction for the order. Zero
// SUCCESS rows holds the shipment; more than one holds it and opens an
// investigation rather than silently picking one.
func (m *PaymentSafetyManager) ValidateBeforeShipment(ctx context.Context, orderID string) (PaymentResult, error) {
	count, err := m.payments.CountByOrderAndStatus(ctx, orderID, domain.PaymentStatusSuccess)
	if err != nil {
		return PaymentResult{}, err
	}
	switch {
	case count == 0:
		m.auditLog(ctx, "validate_shipment", orderID, "", "hold", map[string]any{"success_count": count})
		return PaymentResult{Action: ActionHoldShipment, Reason: "no successful payment recorded"}, nil
	case count == 1:
		m.auditLog(ctx, "validate_shipment", orderID, "", "proceed", nil)
		return PaymentResult{OK: true, Action: ActionProceedToShip}, nil
	default:
		m.logger.ErrorContext(ctx, "duplicate successful payments found",
			"order_id", orderID, "success_count", count)
		m.auditLog(ctx, "validate_shipment", orderID, "", "investigate", map[string]any{"success_count": count})
		return PaymentResult{
			Action:  ActionHoldShipmentInvestigate,
			Actions: []PaymentAction{ActionHoldShipmentInvestigate, ActionAlertFraudTeam},
			Reason:  fmt.Sprintf("%d successful payments recorded for one order", count),
		}, nil
	}
}

func (m *PaymentSafetyManager) GetTransactionHistory(ctx context.Context, orderID string) ([]domain.PaymentTransaction, error) {
	return m.payments.ListByOrder(ctx, orderID)
}

func (m *PaymentSafetyManager) auditLog(ctx context.Context, action, resourceID, userID, status string, details map[string]any) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Log(ctx, AuditEvent{
		Service:      "payment_safety",
		Action:       action,
		ResourceType: "payment_transaction",
		ResourceID:   resourceID,
		UserID:       userID,
		Status:       status,
		Details:      details,
	})
}
