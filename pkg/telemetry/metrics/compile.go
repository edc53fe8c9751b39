package metrics

import (
	"time"

	"texrelay-hq/texrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CompileMetrics tracks conversions handled by the convert endpoint.
//
// Metrics:
//   - texrelay_compile_requests_total{outcome,format}
//   - texrelay_compile_duration_seconds{outcome}
//   - texrelay_document_size_chars
//   - texrelay_pdf_size_bytes
type CompileMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	documentSize  prometheus.Histogram
	pdfSize       prometheus.Histogram
}

// NewCompileMetrics creates and registers compile metrics.
func NewCompileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompileMetrics {
	cm := &CompileMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "compile_requests_total",
				Help:      "Total number of compile requests by outcome and response format",
			},
			[]string{"outcome", "format"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "compile_duration_seconds",
				Help:      "End-to-end duration of compile requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),

		documentSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "document_size_chars",
				Help:      "Length of accepted LaTeX documents in UTF-16 code units",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 6), // 256 to 256K
			},
		),

		pdfSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "pdf_size_bytes",
				Help:      "Size of PDFs returned to callers in bytes",
				Buckets:   prometheus.ExponentialBuckets(4096, 4, 8), // 4KB to 64MB
			},
		),
	}

	registry.MustRegister(cm.requestsTotal, cm.duration, cm.documentSize, cm.pdfSize)

	return cm
}

// RecordCompile increments the request counter and observes duration.
func (cm *CompileMetrics) RecordCompile(outcome, format string, duration time.Duration) {
	cm.requestsTotal.WithLabelValues(outcome, format).Inc()
	cm.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveDocumentSize records an accepted document length.
func (cm *CompileMetrics) ObserveDocumentSize(chars int) {
	if chars > 0 {
		cm.documentSize.Observe(float64(chars))
	}
}

// ObservePDFSize records a returned PDF size.
func (cm *CompileMetrics) ObservePDFSize(bytes int) {
	if bytes > 0 {
		cm.pdfSize.Observe(float64(bytes))
	}
}
