// Package metrics provides Prometheus metrics for texrelay.
//
// # Metrics
//
//   - compile_requests_total{outcome,format}: conversions by result class
//   - compile_duration_seconds{outcome}: handler latency
//   - document_size_chars, pdf_size_bytes: payload sizes
//   - upstream_requests_total{outcome,status_code}, upstream_duration_seconds{outcome}
//   - auth_failures_total{reason}: "missing" or "invalid"
//   - http_requests_total{method,route,status}, http_request_duration_seconds{route}
//
// All names carry the configured namespace prefix (default "texrelay").
// The Go runtime and process collectors are registered alongside.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	comp, _ := compiler.New(cfg.Compiler, compiler.WithObserver(collector))
//	mux.Handle("/metrics", collector.Handler())
//
// Collector implements compiler.UpstreamObserver and
// middleware.HTTPRecorder.
package metrics
