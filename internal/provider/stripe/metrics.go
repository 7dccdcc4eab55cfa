package stripe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeDeclined    = "declined"
	outcomeServerError = "server_error"
	outcomeInvalid     = "invalid_response"
	outcomeTransport   = "transport_error"
)

var (
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_client_requests_total",
			Help: "Charge API operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stripe_client_request_duration_seconds",
			Help:    "Round-trip time of charge API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
