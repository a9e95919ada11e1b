package service

import (
	"context"
	"errors"
	"testing"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

func TestIsValidTransitionTable(t *testing.T) {
	m := NewStateMachine()
	valid := []struct {
		from, to domain.OrderState
	}{
		{domain.OrderStateCreated, domain.OrderStatePaymentPending},
		{domain.OrderStateCreated, domain.OrderStateCancelled},
		{domain.OrderStatePaymentPending, domain.OrderStatePaid},
		{domain.OrderStatePaid, domain.OrderStatePacked},
		{domain.OrderStatePacked, domain.OrderStateShipped},
		{domain.OrderStateShipped, domain.OrderStateDelivered},
		{domain.OrderStateDelivered, domain.OrderStateReturnRequested},
		{domain.OrderStateReturnRequested, domain.OrderStateReturned},
		{domain.OrderStateReturned, domain.OrderStateRefunded},
	}
	for _, tc := range valid {
		if !m.IsValidTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be valid", tc.from, tc.to)
		}
	}

	invalid := []struct {
		from, to domain.OrderState
	}{
		{domain.OrderStateCreated, domain.OrderStateShipped},
		{domain.OrderStateCreated, domain.OrderStatePaid},
		{domain.OrderStateCancelled, domain.OrderStateCreated},
		{domain.OrderStateRefunded, domain.OrderStatePaid},
		{domain.OrderStateShipped, domain.OrderStateCancelled},
	}
	for _, tc := range invalid {
		if m.IsValidTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	m := NewStateMachine()
	if !m.IsTerminal(domain.OrderStateCancelled) {
		t.Fatal("CANCELLED must be terminal")
	}
	if !m.IsTerminal(domain.OrderStateRefunded) {
		t.Fatal("REFUNDED must be terminal")
	}
	if m.IsTerminal(domain.OrderStateDelivered) {
		t.Fatal("DELIVERED is not terminal")
	}
	if m.IsTerminal(domain.OrderState("BOGUS")) {
		t.Fatal("unknown states are not terminal")
	}
	if got := m.AllowedTransitions(domain.OrderStateCancelled); len(got) != 0 {
		t.Fatalf("expected no transitions out of CANCELLED, got %v", got)
	}
}

func TestCancelAction(t *testing.T) {
	m := NewStateMachine()
	cases := []struct {
		state  domain.OrderState
		action CancelActionType
		refund bool
	}{
		{domain.OrderStateCreated, CancelNoRefund, false},
		{domain.OrderStatePaymentPending, CancelNoRefund, false},
		{domain.OrderStatePaid, CancelWithFullRefund, true},
		{domain.OrderStatePacked, CancelExchangeOnly, false},
		{domain.OrderStateShipped, CancelReturnFlow, false},
		{domain.OrderStateDelivered, CancelReturnFlow, false},
		{domain.OrderStateCancelled, CancelNotAllowed, false},
	}
	for _, tc := range cases {
		got := m.CancelAction(tc.state)
		if got.Action != tc.action {
			t.Fatalf("state %s: expected action %s, got %s", tc.state, tc.action, got.Action)
		}
		if got.RefundRequired != tc.refund {
			t.Fatalf("state %s: expected refund_required=%v", tc.state, tc.refund)
		}
	}
}

func TestOrderStateServiceTransition(t *testing.T) {
	db := newServiceDBForTest(t)
	orders := repository.NewOrderRepository(db)
	svc := NewOrderStateService(NewStateMachine(), orders)
	ctx := context.Background()

	if err := orders.Create(ctx, &domain.Order{OrderID: "order-1", UserID: "user-1", Amount: 100, State: domain.OrderStateCreated}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	order, err := svc.Transition(ctx, "order-1", domain.OrderStatePaymentPending)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.State != domain.OrderStatePaymentPending {
		t.Fatalf("expected PAYMENT_PENDING, got %s", order.State)
	}

	if _, err := svc.Transition(ctx, "order-1", domain.OrderStateShipped); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.Transition(ctx, "missing", domain.OrderStateCancelled); !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// The stored state never skips the graph: CREATED -> SHIPPED was
	// rejected, so the row still says PAYMENT_PENDING.
	stored, err := svc.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stored.State != domain.OrderStatePaymentPending {
		t.Fatalf("expected stored state PAYMENT_PENDING, got %s", stored.State)
	}
}
