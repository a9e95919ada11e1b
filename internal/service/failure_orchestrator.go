package service

import (
	"context"
	"log/slog"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// FailureHandler resolves one category of failures. Handlers are stateless;
// everything they need arrives in the FailureContext.
type FailureHandler interface {
	Handle(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error)
}

// FailureOrchestrator dispatches a failure event to the handler for its
// category. Unknown failure types are never dropped; they resolve with
// UNKNOWN severity and an escalation instruction. Every resolution is
// written to the audit log before it is returned.
type FailureOrchestrator struct {
	inventory    FailureHandler
	payment      FailureHandler
	cancellation FailureHandler
	delivery     FailureHandler
	audit        *AuditLogger
	logger       *slog.Logger
}

func NewFailureOrchestrator(inventory, payment, cancellation, delivery FailureHandler, audit *AuditLogger, logger *slog.Logger) *FailureOrchestrator {
	return &FailureOrchestrator{
		inventory:    inventory,
		payment:      payment,
		cancellation: cancellation,
		delivery:     delivery,
		audit:        audit,
		logger:       logger,
	}
}

func (o *FailureOrchestrator) HandleFailure(ctx context.Context, fc domain.FailureContext) (domain.FailureResolution, error) {
	var (
		resolution domain.FailureResolution
		err        error
	)
	switch fc.FailureType {
	case domain.FailureOutOfStock, domain.FailureInventoryMismatch:
		resolution, err = o.inventory.Handle(ctx, fc)
	case domain.FailurePaymentFailed, domain.FailureDuplicatePayment:
		resolution, err = o.payment.Handle(ctx, fc)
	case domain.FailureCancelAfterPayment:
		resolution, err = o.cancellation.Handle(ctx, fc)
	case domain.FailureAddressError, domain.FailureDeliveryFailed:
		resolution, err = o.delivery.Handle(ctx, fc)
	default:
		o.logger.WarnContext(ctx, "failure type has no handler",
			"failure_type", string(fc.FailureType), "order_id", fc.OrderID)
		resolution = domain.FailureResolution{
			FailureType:     fc.FailureType,
			Severity:        domain.SeverityUnknown,
			SystemActions:   []string{"ESCALATE_TO_SUPPORT", "NOTIFY_ENGINEERING"},
			CustomerMessage: "Something went wrong with your order. Our support team has been notified and will reach out shortly.",
		}
	}
	if err != nil {
		o.auditResolution(ctx, fc, resolution, "error")
		return resolution, err
	}
	o.auditResolution(ctx, fc, resolution, "resolved")
	return resolution, nil
}

func (o *FailureOrchestrator) auditResolution(ctx context.Context, fc domain.FailureContext, res domain.FailureResolution, status string) {
	if o.audit == nil {
		return
	}
	details := map[string]any{
		"failure_type":   string(fc.FailureType),
		"severity":       string(res.Severity),
		"current_state":  string(fc.CurrentState),
		"system_actions": res.SystemActions,
	}
	if res.Compensation != nil {
		details["compensation_total"] = res.Compensation.TotalValue
	}
	_ = o.audit.Log(ctx, AuditEvent{
		Service:      "failure_orchestrator",
		Action:       "handle_failure",
		ResourceType: "order",
		ResourceID:   fc.OrderID,
		UserID:       fc.UserID,
		Status:       status,
		Details:      details,
	})
}
