package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/s1037989/stripepayment/internal/provider"
	"github.com/s1037989/stripepayment/internal/provider/mock"
	"github.com/s1037989/stripepayment/internal/service"
	"github.com/s1037989/stripepayment/pkg/health"
	"github.com/s1037989/stripepayment/pkg/middleware"
)

// serviceName labels metrics and spans.
const serviceName = "stripepayment"

// RouterDeps carries what NewRouter wires together. Mock is nil unless the
// provider runs in mocked mode.
type RouterDeps struct {
	Provider provider.Provider
	Checkout *service.CheckoutService
	Health   *health.Handler
	Mock     *mock.Server
	CORS     middleware.CORSConfig
	Logger   *slog.Logger
}

// NewRouter creates a chi router with all payment host routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(deps.CORS))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	chargeHandler := NewChargeHandler(deps.Provider, logger)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.CacheControl(300)).Get("/public-key", chargeHandler.PublicKey)

		r.Route("/charges", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(RequireContentType("application/x-www-form-urlencoded", "multipart/form-data"))

			// Registered inside a group so the request logger sees {id}.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestLogger(logger))
				r.Post("/", chargeHandler.CreateCharge)
				r.Get("/", chargeHandler.RetrieveCharge)
				r.Get("/{id}", chargeHandler.RetrieveCharge)
				r.Post("/{id}/capture", chargeHandler.CaptureCharge)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(RequireContentType("application/json"))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestLogger(logger))
				r.Post("/", checkoutHandler.Checkout)
				r.Get("/{chargeID}", checkoutHandler.GetRecord)
			})
		})
	})

	if deps.Mock != nil {
		r.Handle(mock.PathPrefix+"/*", deps.Mock)
	}

	return r
}
