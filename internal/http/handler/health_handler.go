package handler

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "database not reachable", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready"})
}

// Metrics exposes the in-process repository operation counters.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]any{
		"repository_operations": observability.RepositoryOperationSnapshot(),
	})
}
