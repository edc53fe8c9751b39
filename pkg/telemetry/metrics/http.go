package metrics

import (
	"strconv"
	"time"

	"texrelay-hq/texrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks every HTTP exchange, including health and preflight.
//
// Metrics:
//   - texrelay_http_requests_total{method,route,status}
//   - texrelay_http_request_duration_seconds{route}
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(hm.requests, hm.duration)

	return hm
}

// Record records one HTTP exchange.
func (hm *HTTPMetrics) Record(method, route string, status int, duration time.Duration) {
	hm.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	hm.duration.WithLabelValues(route).Observe(duration.Seconds())
}
