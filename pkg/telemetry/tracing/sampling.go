package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Sampler strategies accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// createSampler builds the root sampler for the configured strategy and wraps
// it so that requests to ignored paths are dropped. Child spans follow their
// parent's decision.
func createSampler(strategy string, ratio float64, ignorePaths []string) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler

	switch strategy {
	case SamplerAlways:
		base = sdktrace.AlwaysSample()
	case SamplerNever:
		base = sdktrace.NeverSample()
	case SamplerRatio:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		base = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio)", strategy)
	}

	if len(ignorePaths) > 0 {
		skip := make(map[string]struct{}, len(ignorePaths))
		for _, p := range ignorePaths {
			skip[p] = struct{}{}
		}
		base = pathSampler{next: base, skip: skip}
	}

	return sdktrace.ParentBased(base), nil
}

// pathSampler drops root spans whose http.target attribute names an ignored
// path and defers everything else to next.
type pathSampler struct {
	next sdktrace.Sampler
	skip map[string]struct{}
}

func (s pathSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, kv := range p.Attributes {
		if kv.Key != attrHTTPTarget {
			continue
		}
		if _, ok := s.skip[kv.Value.AsString()]; ok {
			return sdktrace.SamplingResult{
				Decision:   sdktrace.Drop,
				Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
			}
		}
		break
	}
	return s.next.ShouldSample(p)
}

func (s pathSampler) Description() string {
	return fmt.Sprintf("PathSampler{ignored=%d,%s}", len(s.skip), s.next.Description())
}

const attrHTTPTarget = attribute.Key("http.target")
