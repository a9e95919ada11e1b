package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
)

var (
	ErrOutOfStock         = errors.New("item is out of stock")
	ErrCheckoutInProgress = errors.New("an identical checkout is already in progress")
)

type CheckoutRequest struct {
	UserID        string  `json:"user_id"`
	ItemID        string  `json:"item_id"`
	Quantity      int     `json:"quantity"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
}

type CheckoutResponse struct {
	OrderID       string            `json:"order_id"`
	TransactionID string            `json:"transaction_id"`
	State         domain.OrderState `json:"state"`
	Amount        float64           `json:"amount"`
	Duplicate     bool              `json:"duplicate,omitempty"`
}

// CheckoutService runs the checkout as a saga: reserve stock, create the
// order, open a payment, move to PAYMENT_PENDING. Any failure rolls the
// completed steps back in reverse. The whole flow is deduplicated through
// the idempotency ledger before any step runs.
type CheckoutService struct {
	orders    repository.OrderRepository
	states    *OrderStateService
	inventory InventoryService
	payments  *PaymentSafetyManager
	ledger    *IdempotencyLedger
	sagas     *TransactionManager
	retry     RetryPolicy
	timeouts  *TimeoutManager
	breaker   *CircuitBreaker
	logger    *slog.Logger
}

func NewCheckoutService(
	orders repository.OrderRepository,
	states *OrderStateService,
	inventory InventoryService,
	payments *PaymentSafetyManager,
	ledger *IdempotencyLedger,
	sagas *TransactionManager,
	retry RetryPolicy,
	timeouts *TimeoutManager,
	breaker *CircuitBreaker,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		states:    states,
		inventory: inventory,
		payments:  payments,
		ledger:    ledger,
		sagas:     sagas,
		retry:     retry,
		timeouts:  timeouts,
		breaker:   breaker,
		logger:    logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", req.Quantity)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %.2f", req.Amount)
	}

	payload := map[string]any{
		"item_id":        req.ItemID,
		"quantity":       req.Quantity,
		"amount":         req.Amount,
		"payment_method": req.PaymentMethod,
	}
	key, err := s.ledger.DeriveKey(req.UserID, domain.OperationCheckout, payload)
	if err != nil {
		return nil, err
	}
	begin, err := s.ledger.Begin(ctx, domain.OperationCheckout, key, payload, BeginMeta{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	switch begin.Outcome {
	case OutcomeDuplicate:
		var cached CheckoutResponse
		if begin.Cached != nil {
			if err := json.Unmarshal(begin.Cached.Body, &cached); err != nil {
				return nil, fmt.Errorf("decode cached checkout response: %w", err)
			}
		}
		cached.Duplicate = true
		return &cached, nil
	case OutcomeInProgress:
		return nil, ErrCheckoutInProgress
	}

	resp, err := s.runCheckoutSaga(ctx, req, key)
	if err != nil {
		if markErr := s.ledger.MarkFailed(ctx, domain.OperationCheckout, key, payload, err.Error()); markErr != nil {
			s.logger.WarnContext(ctx, "failed to mark checkout idempotency record",
				"key", key, "error", markErr)
		}
		return nil, err
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode checkout response: %w", err)
	}
	if err := s.ledger.MarkCompleted(ctx, domain.OperationCheckout, key, payload, body); err != nil {
		s.logger.WarnContext(ctx, "failed to complete checkout idempotency record",
			"key", key, "error", err)
	}
	return resp, nil
}

func (s *CheckoutService) runCheckoutSaga(ctx context.Context, req CheckoutRequest, idempotencyKey string) (*CheckoutResponse, error) {
	inStock, err := s.timedCheckStock(ctx, req.ItemID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if !inStock {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, req.ItemID)
	}

	txn, err := s.sagas.Begin(ctx, "checkout")
	if err != nil {
		return nil, err
	}
	orderID := "order-" + uuid.NewString()

	fail := func(stepErr error, reason string) (*CheckoutResponse, error) {
		if _, rbErr := txn.Rollback(ctx, reason); rbErr != nil {
			s.logger.ErrorContext(ctx, "checkout rollback failed",
				"transaction_id", txn.ID(), "order_id", orderID, "error", rbErr)
		}
		return nil, stepErr
	}

	reserveErr := ExecuteWithRetry(ctx, s.logger, s.retry, "inventory.reserve", func(ctx context.Context) error {
		return s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.timeouts.Execute(ctx, "inventory", func(ctx context.Context) error {
				return s.inventory.Reserve(ctx, orderID, req.ItemID, req.Quantity)
			})
		})
	})
	if reserveErr != nil {
		if errors.Is(reserveErr, ErrTemporaryFailure) {
			reserveErr = fmt.Errorf("%w: %s", ErrOutOfStock, req.ItemID)
		}
		return fail(reserveErr, "inventory reservation failed")
	}
	if err := txn.AddStep(ctx, "reserve_inventory", map[string]any{"item_id": req.ItemID}, func(ctx context.Context, data map[string]any) error {
		itemID, _ := data["item_id"].(string)
		return s.inventory.Release(ctx, orderID, itemID)
	}); err != nil {
		return fail(err, "step bookkeeping failed")
	}

	order := &domain.Order{OrderID: orderID, UserID: req.UserID, Amount: req.Amount, State: domain.OrderStateCreated}
	if err := s.orders.Create(ctx, order); err != nil {
		return fail(err, "order creation failed")
	}
	if err := txn.AddStep(ctx, "create_order", nil, func(ctx context.Context, _ map[string]any) error {
		_, cancelErr := s.states.Transition(ctx, orderID, domain.OrderStateCancelled)
		return cancelErr
	}); err != nil {
		return fail(err, "step bookkeeping failed")
	}

	payment, err := s.payments.InitiatePayment(ctx, orderID, req.UserID, req.Amount, req.PaymentMethod, idempotencyKey)
	if err != nil {
		return fail(err, "payment initiation failed")
	}
	// The INITIATED transaction record is the evidence trail; it stays
	// even when checkout rolls back.
	if err := txn.AddStep(ctx, "initiate_payment", nil, nil); err != nil {
		return fail(err, "step bookkeeping failed")
	}

	if _, err := s.states.Transition(ctx, orderID, domain.OrderStatePaymentPending); err != nil {
		return fail(err, "order transition failed")
	}
	if err := txn.Commit(ctx); err != nil {
		return nil, err
	}

	return &CheckoutResponse{
		OrderID:       orderID,
		TransactionID: payment.TransactionID,
		State:         domain.OrderStatePaymentPending,
		Amount:        req.Amount,
	}, nil
}

func (s *CheckoutService) timedCheckStock(ctx context.Context, itemID string, quantity int) (bool, error) {
	var inStock bool
	err := s.timeouts.Execute(ctx, "inventory", func(ctx context.Context) error {
		var checkErr error
		inStock, checkErr = s.inventory.CheckStock(ctx, itemID, quantity)
		return checkErr
	})
	return inStock, err
}
