// Package telemetry groups texrelay's observability packages.
//
//   - logging: slog construction, context correlation, credential redaction
//   - metrics: Prometheus collector for compile, upstream, auth and HTTP
//   - tracing: OpenTelemetry tracer with OTLP gRPC export
//   - health: liveness, readiness and version endpoints
//
// None of them ever records the LaTeX source or an API key.
package telemetry
