// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors. Create one per registry.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AuthFailures        *prometheus.CounterVec
	HistoryDropped      prometheus.Counter
	HistoryWriteFailed  prometheus.Counter
	HistoryQueueDepth   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aspiro_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aspiro_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aspiro_auth_failures_total",
				Help: "Rejected authentication attempts by reason",
			},
			[]string{"reason"},
		),
		HistoryDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "aspiro_history_dropped_total",
			Help: "Chat turns dropped because the history queue was full",
		}),
		HistoryWriteFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "aspiro_history_write_failures_total",
			Help: "Chat turns that failed to persist",
		}),
		HistoryQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "aspiro_history_queue_depth",
			Help: "Chat turns waiting to be persisted",
		}),
	}
}

// NewNop returns collectors bound to a private registry, for tests and tools
// that never expose them.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// AuthFailure reasons.
const (
	ReasonBadCredentials = "bad_credentials"
	ReasonInactive       = "inactive"
	ReasonInvalidToken   = "invalid_token"
	ReasonFederated      = "federated"
	ReasonRateLimited    = "rate_limited"
)
