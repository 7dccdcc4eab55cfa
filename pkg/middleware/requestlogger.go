package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1037989/stripepayment/pkg/logger"
)

// chargeIDParams are the route parameters that name a provider charge.
var chargeIDParams = []string{"id", "chargeID"}

// RequestLogger stores a request-scoped logger in the context. The logger
// carries the correlation id, the trace and span ids and, on charge routes,
// the charge id. Handlers read it back with logger.FromContext.
//
// Mount it after RequestLogging and Tracing, inside a chi Group so route
// parameters are already resolved.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if rctx := chi.RouteContext(ctx); rctx != nil {
				for _, name := range chargeIDParams {
					if id := rctx.URLParam(name); id != "" {
						ctx = logger.WithChargeID(ctx, id)
						break
					}
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
