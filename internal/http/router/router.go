package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/handler"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/middleware"
)

// Dependencies is everything the router needs, provided by the DI layer.
type Dependencies struct {
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Refunds  *handler.RefundHandler
	Failures *handler.FailureHandler
	Audit    *handler.AuditHandler
	Health   *handler.HealthHandler

	CheckoutIdempotency *middleware.Idempotency
	CallbackRateLimiter *middleware.RateLimiter
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceContext)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", dep.Health.Healthz)
	r.Get("/readyz", dep.Health.Readyz)
	r.Get("/metrics", dep.Health.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.With(dep.CheckoutIdempotency.Middleware()).Post("/checkout", dep.Orders.Checkout)
			r.Get("/{order_id}", dep.Orders.Get)
			r.Post("/{order_id}/transition", dep.Orders.Transition)
			r.Post("/{order_id}/cancel", dep.Orders.Cancel)
			r.Get("/{order_id}/payments", dep.Payments.History)
			r.Get("/{order_id}/refunds", dep.Refunds.ListByOrder)
			r.Get("/{order_id}/validate-shipment", dep.Payments.ValidateShipment)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", dep.Payments.Initiate)
			r.With(dep.CallbackRateLimiter.Middleware()).Post("/{transaction_id}/callback", dep.Payments.Callback)
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/{refund_id}", dep.Refunds.Get)
			r.Post("/{refund_id}/status", dep.Refunds.UpdateStatus)
		})

		r.Post("/failures", dep.Failures.Report)
		r.Get("/audit", dep.Audit.Query)
		r.Post("/audit/archive", dep.Audit.Archive)
	})

	return r
}
