package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanHTTPRequest = "texrelay.http.request"
	SpanConvert     = "texrelay.convert"
	SpanUpstream    = "texrelay.compiler.upstream"
)

// Attribute keys. Custom keys use the "texrelay.*" namespace.
const (
	AttrRequestID      = "texrelay.request_id"
	AttrDocumentChars  = "texrelay.document.chars"
	AttrResponseFormat = "texrelay.response.format"
	AttrAuthMode       = "texrelay.auth.mode"
	AttrCompilerMode   = "texrelay.compiler.mode"
	AttrCompilerEngine = "texrelay.compiler.engine"
	AttrEscaped        = "texrelay.compiler.escaped"
	AttrPDFBytes       = "texrelay.pdf.bytes"
	AttrOutcome        = "texrelay.outcome"
	AttrErrorMessage   = "error.message"
)

// SetConvertAttributes records the request-level facts of a conversion.
// The document itself is never attached to a span.
func SetConvertAttributes(span trace.Span, requestID string, chars int, format string) {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrDocumentChars, chars),
		attribute.String(AttrResponseFormat, format),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetOutcome records the final classification of a conversion.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
}
