package metrics

import (
	"texrelay-hq/texrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics tracks API key rejections.
//
// Metrics:
//   - texrelay_auth_failures_total{reason}
type AuthMetrics struct {
	failures *prometheus.CounterVec
}

// NewAuthMetrics creates and registers auth metrics.
func NewAuthMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuthMetrics {
	am := &AuthMetrics{
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of requests rejected for a missing or wrong API key",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(am.failures)

	return am
}

// RecordFailure increments the failure counter.
func (am *AuthMetrics) RecordFailure(reason string) {
	am.failures.WithLabelValues(reason).Inc()
}
