package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// TraceContext lifts the W3C traceparent/tracestate headers into the
// request context so log records downstream carry the caller's
// trace_id/span_id. Without the headers the context is left untouched.
func TraceContext(next http.Handler) http.Handler {
	prop := propagation.TraceContext{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
