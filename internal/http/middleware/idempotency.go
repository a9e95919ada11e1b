package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/response"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "X-Idempotency-Replayed"
	maxIdempotencyKeyLen = 128
)

// Idempotency guards a mutating route with a client-supplied key. The
// whole request body is fingerprinted, so reusing a key with a different
// body is a hard 409 here, unlike the derived-key ledger which only warns.
type Idempotency struct {
	store  service.IdempotencyStore
	scope  string
	ttl    time.Duration
	logger *slog.Logger
}

func NewIdempotency(store service.IdempotencyStore, scope string, ttl time.Duration, logger *slog.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{store: store, scope: scope, ttl: ttl, logger: logger}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *responseRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *responseRecorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	rec.body.Write(p)
	return rec.ResponseWriter.Write(p)
}

func (m *Idempotency) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing Idempotency-Key header", nil)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Idempotency-Key header too long", nil)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body", nil)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			begin, err := m.store.Begin(r.Context(), m.scope, key, fingerprint, service.BeginMeta{}, m.ttl)
			if err != nil {
				m.logger.ErrorContext(r.Context(), "idempotency begin failed",
					"scope", m.scope, "error", err)
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "idempotency check failed", nil)
				return
			}

			switch begin.State {
			case service.IdempotencyStateReplay:
				w.Header().Set(replayedHeader, "true")
				if begin.Cached != nil {
					w.Header().Set("Content-Type", begin.Cached.ContentType)
					w.WriteHeader(begin.Cached.StatusCode)
					_, _ = w.Write(begin.Cached.Body)
					return
				}
				response.JSON(w, r, http.StatusOK, nil)
				return
			case service.IdempotencyStateConflict:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "Idempotency-Key was reused with a different request body", nil)
				return
			case service.IdempotencyStateInProgress:
				response.Error(w, r, http.StatusConflict, "CONFLICT", "an identical request is still being processed", nil)
				return
			}

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				cached := service.CachedResponse{
					StatusCode:  rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}
				if err := m.store.Complete(r.Context(), m.scope, key, fingerprint, cached, m.ttl); err != nil {
					m.logger.WarnContext(r.Context(), "idempotency complete failed",
						"scope", m.scope, "error", err)
				}
				return
			}
			if err := m.store.Fail(r.Context(), m.scope, key, fingerprint, http.StatusText(rec.status)); err != nil {
				m.logger.WarnContext(r.Context(), "idempotency fail-mark failed",
					"scope", m.scope, "error", err)
			}
		})
	}
}
