// Package server wires the compile endpoint, health probes and metrics into
// one http.Server and manages its lifecycle.
//
// # Routes
//
//	POST /latex-convert   compile (path from proxy.convert_path)
//	GET  /health          liveness
//	GET  /ready           readiness (API key loaded, compiler reachable)
//	GET  /version         build information
//	GET  /metrics         Prometheus exposition
//
// Anything else answers 404 with the JSON error shape.
//
// # Middleware
//
// From outermost to innermost:
//
//	RequestID -> Logging -> Recovery -> Tracing -> Metrics -> CORS -> Timeout -> mux
//
// The request ID is assigned first so every log line for the request,
// including the access log and a recovered panic, carries it. Recovery sits
// inside logging so a panicking handler still produces a completed-request
// line with status 500. CORS answers preflights before the request budget
// starts.
//
// # Usage
//
//	srv := server.New(cfg, convertHandler,
//	    server.WithHealth(checker, server.BuildInfo{Version: version}),
//	    server.WithMetrics(collector),
//	    server.WithTracer(tracer),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start returns after ctx is cancelled and in-flight requests have drained,
// bounded by proxy.shutdown_timeout. With proxy.tls.enabled the listener
// serves HTTPS using certificates from package tls, reloaded on change when
// proxy.tls.watch_certs is set.
package server
