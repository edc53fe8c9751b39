package metrics

import (
	"time"

	"texrelay-hq/texrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks calls to the external compiler.
//
// Metrics:
//   - texrelay_upstream_requests_total{outcome,status_code}
//   - texrelay_upstream_duration_seconds{outcome}
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewUpstreamMetrics creates and registers upstream metrics.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of calls to the external compiler",
			},
			[]string{"outcome", "status_code"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Latency of calls to the external compiler in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(um.requests, um.latency)

	return um
}

// Observe records one upstream call.
func (um *UpstreamMetrics) Observe(outcome, statusCode string, duration time.Duration) {
	um.requests.WithLabelValues(outcome, statusCode).Inc()
	um.latency.WithLabelValues(outcome).Observe(duration.Seconds())
}
