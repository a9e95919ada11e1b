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

type RefundHandler struct {
	refunds *service.RefundManager
}

func NewRefundHandler(refunds *service.RefundManager) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

func (h *RefundHandler) Get(w http.ResponseWriter, r *http.Request) {
	refundID := chi.URLParam(r, "refund_id")
	refund, err := h.refunds.GetRefund(r.Context(), refundID)
	if err != nil {
		if errors.Is(err, repository.ErrRefundNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "refund not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load refund", nil)
		return
	}
	timeline, err := h.refunds.Timeline(r.Context(), refundID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to decode refund timeline", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"refund":   refund,
		"timeline": timeline,
	})
}

func (h *RefundHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	refunds, err := h.refunds.ListByOrder(r.Context(), orderID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list refunds", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, refunds)
}

func (h *RefundHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	refundID := chi.URLParam(r, "refund_id")
	var req struct {
		Status domain.RefundStatus `json:"status"`
		Note   string              `json:"note,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	switch req.Status {
	case domain.RefundStatusProcessing, domain.RefundStatusCompleted, domain.RefundStatusFailed:
	default:
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown refund status", nil)
		return
	}

	refund, err := h.refunds.UpdateRefundStatus(r.Context(), refundID, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRefundNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "refund not found", nil)
		case errors.Is(err, service.ErrRefundNotCompletable):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update refund", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, refund)
}
