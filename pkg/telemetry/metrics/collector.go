package metrics

import (
	"strconv"
	"sync"
	"time"

	"texrelay-hq/texrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns every texrelay metric and the registry they live in.
// When metrics are disabled all Record and Observe methods are no-ops, so
// callers never need a nil check.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	compileMetrics  *CompileMetrics
	upstreamMetrics *UpstreamMetrics
	authMetrics     *AuthMetrics
	httpMetrics     *HTTPMetrics

	// Upstream status codes come from a third party; cap their label values.
	statusLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector with its own registry when
// registry is nil. Go runtime and process collectors are registered too.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30}
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}),
	)

	return &Collector{
		config:          cfg,
		registry:        registry,
		compileMetrics:  NewCompileMetrics(cfg, registry),
		upstreamMetrics: NewUpstreamMetrics(cfg, registry),
		authMetrics:     NewAuthMetrics(cfg, registry),
		httpMetrics:     NewHTTPMetrics(cfg, registry),
		statusLimiter:   NewCardinalityLimiter(32),
	}
}

// RecordCompile records one finished conversion.
//
// Parameters:
//   - outcome: "success", "auth_error", "validation_error", "upstream_error", "internal_error"
//   - format: "json" or "binary"
//   - duration: time spent in the convert handler
func (c *Collector) RecordCompile(outcome, format string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.compileMetrics.RecordCompile(outcome, format, duration)
}

// ObserveDocumentSize records the length of an accepted document in UTF-16
// code units.
func (c *Collector) ObserveDocumentSize(chars int) {
	if !c.config.Enabled {
		return
	}
	c.compileMetrics.ObserveDocumentSize(chars)
}

// ObservePDFSize records the size of a returned PDF.
func (c *Collector) ObservePDFSize(bytes int) {
	if !c.config.Enabled {
		return
	}
	c.compileMetrics.ObservePDFSize(bytes)
}

// ObserveUpstream records one call to the external compiler. statusCode is
// 0 when no response was received.
func (c *Collector) ObserveUpstream(outcome string, statusCode int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
		if !c.statusLimiter.Allow(code) {
			code = "other"
		}
	}
	c.upstreamMetrics.Observe(outcome, code, duration)
}

// RecordAuthFailure records a rejected API key. reason is "missing" or
// "invalid".
func (c *Collector) RecordAuthFailure(reason string) {
	if !c.config.Enabled {
		return
	}
	c.authMetrics.RecordFailure(reason)
}

// RecordHTTPRequest records one HTTP exchange on any route.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.Record(method, route, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter bounds the number of distinct label values a metric
// can take.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already tracked or still fits under the
// limit, tracking it in the latter case.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
