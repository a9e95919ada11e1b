package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

type AuditHandler struct {
	audit    *service.AuditLogger
	archiver service.AuditArchiver
}

func NewAuditHandler(audit *service.AuditLogger, archiver service.AuditArchiver) *AuditHandler {
	return &AuditHandler{audit: audit, archiver: archiver}
}

// Query backs the operations dashboard. All filters are optional query
// parameters; time bounds are RFC 3339.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.AuditFilter{
		Service:      q.Get("service"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		UserID:       q.Get("user_id"),
		Status:       q.Get("status"),
	}
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "since must be RFC 3339", nil)
			return
		}
		filter.Since = &t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "until must be RFC 3339", nil)
			return
		}
		filter.Until = &t
	}

	page := repository.PageRequest{}
	if raw := q.Get("page"); raw != "" {
		page.Page, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("page_size"); raw != "" {
		page.PageSize, _ = strconv.Atoi(raw)
	}

	result, err := h.audit.Query(r.Context(), filter, page)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to query audit log", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"items":       result.Items,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	})
}

// Archive copies entries older than the cutoff to long-term storage.
// Returns 503 when no archive backend is configured.
func (h *AuditHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "audit archiving is not configured", nil)
		return
	}
	cutoffRaw := r.URL.Query().Get("before")
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if cutoffRaw != "" {
		t, err := time.Parse(time.RFC3339, cutoffRaw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "before must be RFC 3339", nil)
			return
		}
		cutoff = t
	}
	batch := 500
	if raw := r.URL.Query().Get("batch"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			batch = n
		}
	}

	count, err := h.audit.ArchiveBefore(r.Context(), h.archiver, cutoff, batch)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to archive audit entries", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"archived": count,
		"cutoff":   cutoff,
	})
}
