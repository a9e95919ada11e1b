package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

var ErrInvalidTransition = errors.New("invalid order state transition")

// orderTransitions is the full legal lifecycle. CANCELLED and REFUNDED are
// terminal. Anything outside this table is rejected, never coerced.
var orderTransitions = map[domain.OrderState][]domain.OrderState{
	domain.OrderStateCreated:         {domain.OrderStatePaymentPending, domain.OrderStateCancelled},
	domain.OrderStatePaymentPending:  {domain.OrderStatePaid, domain.OrderStateCancelled, domain.OrderStateCreated},
	domain.OrderStatePaid:            {domain.OrderStatePacked, domain.OrderStateCancelled, domain.OrderStateRefunded},
	domain.OrderStatePacked:          {domain.OrderStateShipped, domain.OrderStateReturnRequested},
	domain.OrderStateShipped:         {domain.OrderStateDelivered, domain.OrderStateReturnRequested},
	domain.OrderStateDelivered:       {domain.OrderStateReturnRequested},
	domain.OrderStateReturnRequested: {domain.OrderStateReturned, domain.OrderStateDelivered},
	domain.OrderStateReturned:        {domain.OrderStateRefunded},
	domain.OrderStateCancelled:       {},
	domain.OrderStateRefunded:        {},
}

type CancelActionType string

const (
	CancelNoRefund       CancelActionType = "CANCEL_NO_REFUND"
	CancelWithFullRefund CancelActionType = "CANCEL_WITH_FULL_REFUND"
	CancelExchangeOnly   CancelActionType = "EXCHANGE_ONLY"
	CancelReturnFlow     CancelActionType = "RETURN_FLOW"
	CancelNotAllowed     CancelActionType = "NOT_ALLOWED"
)

type CancelAction struct {
	Action         CancelActionType `json:"action"`
	Description    string           `json:"description"`
	RefundRequired bool             `json:"refund_required"`
}

// StateMachine is stateless; all answers come from the transition table.
type StateMachine struct{}

func NewStateMachine() *StateMachine { return &StateMachine{} }

func (m *StateMachine) IsValidTransition(from, to domain.OrderState) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (m *StateMachine) AllowedTransitions(state domain.OrderState) []domain.OrderState {
	next := orderTransitions[state]
	out := make([]domain.OrderState, len(next))
	copy(out, next)
	return out
}

func (m *StateMachine) IsTerminal(state domain.OrderState) bool {
	next, known := orderTransitions[state]
	return known && len(next) == 0
}

func (m *StateMachine) CanCancel(state domain.OrderState) bool {
	return m.IsValidTransition(state, domain.OrderStateCancelled)
}

func (m *StateMachine) CancelAction(state domain.OrderState) CancelAction {
	switch state {
	case domain.OrderStateCreated, domain.OrderStatePaymentPending:
		return CancelAction{
			Action:      CancelNoRefund,
			Description: "no payment captured, order cancelled without refund",
		}
	case domain.OrderStatePaid:
		return CancelAction{
			Action:         CancelWithFullRefund,
			Description:    "payment captured, full refund issued on cancellation",
			RefundRequired: true,
		}
	case domain.OrderStatePacked:
		return CancelAction{
			Action:      CancelExchangeOnly,
			Description: "order already packed, exchange is the only option",
		}
	case domain.OrderStateShipped, domain.OrderStateDelivered:
		return CancelAction{
			Action:      CancelReturnFlow,
			Description: "order in transit or delivered, use the return flow instead of cancellation",
		}
	default:
		return CancelAction{
			Action:      CancelNotAllowed,
			Description: fmt.Sprintf("cancellation is not available in state %s", state),
		}
	}
}

// OrderStateService couples the validator with the conditional store
// update so callers cannot write a state the table forbids.
type OrderStateService struct {
	machine *StateMachine
	orders  repository.OrderRepository
}

func NewOrderStateService(machine *StateMachine, orders repository.OrderRepository) *OrderStateService {
	return &OrderStateService{machine: machine, orders: orders}
}

func (s *OrderStateService) Machine() *StateMachine { return s.machine }

func (s *OrderStateService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.FindByOrderID(ctx, orderID)
}

func (s *OrderStateService) Transition(ctx context.Context, orderID string, to domain.OrderState) (*domain.Order, error) {
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.machine.IsValidTransition(order.State, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.State, to)
	}
	if err := s.orders.TransitionState(ctx, orderID, order.State, to); err != nil {
		return nil, err
	}
	order.State = to
	return order, nil
}
