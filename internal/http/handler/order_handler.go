package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

type OrderHandler struct {
	checkout     *service.CheckoutService
	states       *service.OrderStateService
	orchestrator *service.FailureOrchestrator
}

func NewOrderHandler(checkout *service.CheckoutService, states *service.OrderStateService, orchestrator *service.FailureOrchestrator) *OrderHandler {
	return &OrderHandler{checkout: checkout, states: states, orchestrator: orchestrator}
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if req.UserID == "" || req.ItemID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id and item_id are required", nil)
		return
	}

	resp, err := h.checkout.Checkout(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOutOfStock):
			resolution, resolveErr := h.orchestrator.HandleFailure(r.Context(), domain.FailureContext{
				OrderID:     "",
				UserID:      req.UserID,
				FailureType: domain.FailureOutOfStock,
				Details:     map[string]any{"item_id": req.ItemID, "quantity": req.Quantity},
			})
			if resolveErr != nil {
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
				return
			}
			response.Error(w, r, http.StatusConflict, "OUT_OF_STOCK", resolution.CustomerMessage, resolution)
			return
		case errors.Is(err, service.ErrCheckoutInProgress):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "an identical checkout is already in progress", nil)
			return
		case errors.Is(err, service.ErrUnsupportedPaymentMethod):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unsupported payment method", nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
			return
		}
	}
	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	response.JSON(w, r, status, resp)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	order, err := h.states.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"order":               order,
		"allowed_transitions": h.states.Machine().AllowedTransitions(order.State),
		"terminal":            h.states.Machine().IsTerminal(order.State),
	})
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	var req struct {
		Target domain.OrderState `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if !req.Target.Valid() {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown target state", nil)
		return
	}

	order, err := h.states.Transition(r.Context(), orderID, req.Target)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, repository.ErrStaleOrderState):
			response.Error(w, r, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to transition order", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, order)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	var req struct {
		UserID  string         `json:"user_id"`
		Details map[string]any `json:"details,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	order, err := h.states.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}

	details := req.Details
	if details == nil {
		details = map[string]any{}
	}
	if _, ok := details["amount"]; !ok {
		details["amount"] = order.Amount
	}
	resolution, err := h.orchestrator.HandleFailure(r.Context(), domain.FailureContext{
		OrderID:      orderID,
		UserID:       req.UserID,
		FailureType:  domain.FailureCancelAfterPayment,
		CurrentState: order.State,
		Details:      details,
	})
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "cancellation failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, resolution)
}
