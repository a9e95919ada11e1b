package handler

import (
	"encoding/json"
	"net/http"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

type FailureHandler struct {
	orchestrator *service.FailureOrchestrator
}

func NewFailureHandler(orchestrator *service.FailureOrchestrator) *FailureHandler {
	return &FailureHandler{orchestrator: orchestrator}
}

// Report accepts a failure event and returns the resolution plan. Unknown
// failure types still resolve (UNKNOWN severity), so this never 404s on
// the type.
func (h *FailureHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req domain.FailureContext
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if req.FailureType == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "failure_type is required", nil)
		return
	}

	resolution, err := h.orchestrator.HandleFailure(r.Context(), req)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to resolve failure", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, resolution)
}
