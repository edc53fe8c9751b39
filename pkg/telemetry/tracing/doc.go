// Package tracing provides OpenTelemetry distributed tracing for texrelay.
//
// # Overview
//
// A request produces one server span (texrelay.http.request), a child span
// for the compile pipeline (texrelay.convert) and a client span around the
// call to the external compiler (texrelay.compiler.upstream). The W3C
// traceparent header is extracted from incoming requests and injected into
// the upstream call, so a compiler that also traces joins the same trace.
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces
//   - ratio: Sample a percentage of traces (production)
//
// All of them respect the parent's sampling decision.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, tracing.SpanConvert)
//	defer span.End()
//
// When tracing is disabled New returns a tracer backed by the noop provider,
// so callers never need a nil check.
//
// # Export
//
// Spans are exported over OTLP gRPC to telemetry.tracing.endpoint. Jaeger,
// Tempo and the OpenTelemetry Collector all accept OTLP directly.
package tracing
