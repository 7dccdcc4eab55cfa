package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-route-test"))
	r.Get("/charges/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"ch_1", "ch_2", "ch_3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/charges/"+id, nil))
	}

	counter := httpRequestsTotal.WithLabelValues("metrics-route-test", http.MethodGet, "/charges/{id}", "200")
	assert.Equal(t, float64(3), testutil.ToFloat64(counter))
}

func TestPrometheusMetrics_RecordsStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-status-test"))
	r.Post("/charges", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/charges", nil))

	counter := httpRequestsTotal.WithLabelValues("metrics-status-test", http.MethodPost, "/charges", "402")
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	var during float64
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-inflight-test"))
	r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("metrics-inflight-test"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, float64(1), during)
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight.WithLabelValues("metrics-inflight-test")))
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	handler := PrometheusMetrics("metrics-unknown-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	counter := httpRequestsTotal.WithLabelValues("metrics-unknown-test", http.MethodGet, "unknown", "404")
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}
