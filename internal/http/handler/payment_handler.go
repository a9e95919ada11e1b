package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/security"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

const gatewaySignatureHeader = "X-Gateway-Signature"

type PaymentHandler struct {
	payments       *service.PaymentSafetyManager
	validator      *service.PaymentIdempotencyValidator
	states         *service.OrderStateService
	callbackSecret string
}

func NewPaymentHandler(payments *service.PaymentSafetyManager, validator *service.PaymentIdempotencyValidator, states *service.OrderStateService, callbackSecret string) *PaymentHandler {
	return &PaymentHandler{
		payments:       payments,
		validator:      validator,
		states:         states,
		callbackSecret: callbackSecret,
	}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string  `json:"user_id"`
		OrderID       string  `json:"order_id"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if req.UserID == "" || req.OrderID == "" || req.Amount <= 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id, order_id and a positive amount are required", nil)
		return
	}

	check, err := h.validator.Validate(r.Context(), req.UserID, req.OrderID, req.Amount, req.PaymentMethod)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "idempotency check failed", nil)
		return
	}
	switch check.Outcome {
	case service.OutcomeDuplicate:
		w.Header().Set("X-Idempotency-Replayed", "true")
		if check.Cached != nil {
			w.Header().Set("Content-Type", check.Cached.ContentType)
			w.WriteHeader(check.Cached.StatusCode)
			_, _ = w.Write(check.Cached.Body)
			return
		}
		response.JSON(w, r, http.StatusOK, nil)
		return
	case service.OutcomeInProgress:
		response.Error(w, r, http.StatusConflict, "CONFLICT", "an identical payment is still being processed", nil)
		return
	}

	txn, err := h.payments.InitiatePayment(r.Context(), req.OrderID, req.UserID, req.Amount, req.PaymentMethod, check.Key)
	if err != nil {
		_ = h.validator.Fail(r.Context(), check.Key, req.UserID, req.OrderID, req.Amount, req.PaymentMethod, err.Error())
		if errors.Is(err, service.ErrUnsupportedPaymentMethod) {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unsupported payment method", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to initiate payment", nil)
		return
	}

	body, _ := json.Marshal(txn)
	_ = h.validator.Complete(r.Context(), check.Key, req.UserID, req.OrderID, req.Amount, req.PaymentMethod, body)
	response.JSON(w, r, http.StatusCreated, txn)
}

// Callback is the gateway's asynchronous result. The raw body is verified
// against X-Gateway-Signature before anything is decoded from it.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transaction_id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body", nil)
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	signatureOK := security.VerifyCallbackSignature(body, r.Header.Get(gatewaySignatureHeader), h.callbackSecret)

	var req struct {
		OrderID          string  `json:"order_id"`
		Amount           float64 `json:"amount"`
		IdempotencyKey   string  `json:"idempotency_key"`
		GatewayReference string  `json:"gateway_reference"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}

	result, err := h.payments.ProcessPaymentCallback(r.Context(), transactionID, service.CallbackData{
		OrderID:           req.OrderID,
		Amount:            req.Amount,
		IdempotencyKey:    req.IdempotencyKey,
		SignatureVerified: signatureOK,
	}, req.GatewayReference)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to process callback", nil)
		return
	}

	if result.OK && result.Action == service.ActionUpdateOrderState {
		if _, err := h.states.Transition(r.Context(), req.OrderID, domain.OrderStatePaid); err != nil {
			// Payment is captured; a state race here is surfaced, not hidden.
			response.Error(w, r, http.StatusConflict, "INVALID_TRANSITION", err.Error(), result)
			return
		}
	}

	status := http.StatusOK
	switch result.Action {
	case service.ActionCallbackValidationFailed:
		status = http.StatusUnprocessableEntity
	case service.ActionDuplicatePaymentDetected:
		status = http.StatusConflict
	}
	response.JSON(w, r, status, result)
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	txns, err := h.payments.GetTransactionHistory(r.Context(), orderID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load transactions", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, txns)
}

func (h *PaymentHandler) ValidateShipment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	result, err := h.payments.ValidateBeforeShipment(r.Context(), orderID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to validate shipment", nil)
		return
	}
	status := http.StatusOK
	if result.Action == service.ActionHoldShipmentInvestigate {
		status = http.StatusConflict
	}
	response.JSON(w, r, status, result)
}
