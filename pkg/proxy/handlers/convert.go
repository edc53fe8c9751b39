package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"texrelay-hq/texrelay/pkg/compiler"
	"texrelay-hq/texrelay/pkg/proxy"
	"texrelay-hq/texrelay/pkg/proxy/middleware"
	"texrelay-hq/texrelay/pkg/proxy/types"
	"texrelay-hq/texrelay/pkg/security/auth"
	"texrelay-hq/texrelay/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OutcomeSuccess labels a conversion that returned a PDF. Failures are
// labelled with the class from proxy.HandleError.
const OutcomeSuccess = "success"

// Auth failure reasons passed to CompileRecorder.
const (
	AuthReasonMissing = "missing"
	AuthReasonInvalid = "invalid"
)

// Auth results written to the access log.
const (
	AuthResultValid     = "valid"
	AuthResultAnonymous = "anonymous"
	AuthResultDisabled  = "disabled"
)

// CompileRecorder receives per-conversion measurements.
// metrics.Collector implements it.
type CompileRecorder interface {
	RecordCompile(outcome, format string, duration time.Duration)
	ObserveDocumentSize(chars int)
	ObservePDFSize(bytes int)
	RecordAuthFailure(reason string)
}

// ConvertConfig holds the limits and header names the handler enforces.
type ConvertConfig struct {
	// KeyHeader is the request header carrying the API key.
	KeyHeader string

	// MaxBodyBytes caps the raw request body.
	MaxBodyBytes int64

	// MaxDocumentChars caps the latex field in UTF-16 code units.
	MaxDocumentChars int
}

// ConvertHandler serves the compile endpoint. Each POST runs authentication,
// body validation, one upstream compile and one response write, in that
// order. Failures short-circuit, so a rejected key or an invalid body never
// reaches the compiler.
type ConvertHandler struct {
	compiler compiler.Compiler
	keys     *auth.KeyChecker
	config   ConvertConfig
	tracer   *tracing.Tracer
	recorder CompileRecorder
}

// ConvertOption configures a ConvertHandler.
type ConvertOption func(*ConvertHandler)

// WithTracer records a span per conversion.
func WithTracer(t *tracing.Tracer) ConvertOption {
	return func(h *ConvertHandler) {
		if t != nil {
			h.tracer = t
		}
	}
}

// WithRecorder reports outcomes and sizes to r.
func WithRecorder(r CompileRecorder) ConvertOption {
	return func(h *ConvertHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewConvertHandler creates the compile endpoint handler.
func NewConvertHandler(comp compiler.Compiler, keys *auth.KeyChecker, cfg ConvertConfig, opts ...ConvertOption) *ConvertHandler {
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = proxy.APIKeyHeader
	}

	h := &ConvertHandler{
		compiler: comp,
		keys:     keys,
		config:   cfg,
		tracer:   tracing.Noop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodOptions:
		// Reached only when CORS is disabled; preflight still succeeds.
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		proxy.WriteError(w, http.StatusMethodNotAllowed, types.MessageMethodNotAllowed, "")
		return
	}

	start := time.Now()
	ctx := r.Context()
	meta := proxy.ExtractRequestMetadata(r, middleware.GetRequestID(ctx), h.config.KeyHeader)

	ctx, span := h.tracer.Start(ctx, tracing.SpanConvert,
		trace.WithAttributes(attribute.String(tracing.AttrAuthMode, string(h.keys.Mode()))),
	)
	defer span.End()

	resp, outcome := h.convert(ctx, r, meta, span)

	tracing.SetOutcome(span, outcome)
	h.recorder.RecordCompile(outcome, meta.Format, time.Since(start))
	middleware.AnnotateAccessLog(ctx,
		slog.String("format", meta.Format),
		slog.String("outcome", outcome),
	)

	proxy.Write(w, resp)
}

func (h *ConvertHandler) convert(ctx context.Context, r *http.Request, meta *proxy.RequestMetadata, span trace.Span) (proxy.Response, string) {
	presented := proxy.ExtractAPIKey(r, h.config.KeyHeader)
	if err := h.keys.Check(ctx, presented); err != nil {
		reason := AuthReasonInvalid
		if errors.Is(err, auth.ErrMissingAPIKey) {
			reason = AuthReasonMissing
		}
		middleware.AnnotateAccessLog(ctx, slog.String("auth", reason))
		h.recorder.RecordAuthFailure(reason)
		return h.fail(ctx, span, meta, err)
	}
	middleware.AnnotateAccessLog(ctx, slog.String("auth", authResult(h.keys.Mode(), presented)))

	req, err := proxy.ParseCompileRequest(r, h.config.MaxBodyBytes, h.config.MaxDocumentChars)
	if err != nil {
		return h.fail(ctx, span, meta, err)
	}

	chars := req.Length()
	tracing.SetConvertAttributes(span, meta.RequestID, chars, meta.Format)
	h.recorder.ObserveDocumentSize(chars)

	slog.InfoContext(ctx, "compiling document",
		append(meta.LogAttrs(), "chars", chars)...,
	)

	// A client that disconnects mid-compile does not abort the upstream
	// call; the request budget still bounds it.
	upstreamCtx, cancel := middleware.Detach(ctx)
	defer cancel()

	compileStart := time.Now()
	pdf, err := h.compiler.Compile(upstreamCtx, req.Latex)
	if err != nil {
		return h.fail(ctx, span, meta, err)
	}

	span.SetAttributes(attribute.Int(tracing.AttrPDFBytes, len(pdf)))
	h.recorder.ObservePDFSize(len(pdf))

	slog.InfoContext(ctx, "document compiled",
		"request_id", meta.RequestID,
		"format", meta.Format,
		"chars", chars,
		"pdf_bytes", len(pdf),
		"compile_ms", time.Since(compileStart).Milliseconds(),
	)

	return proxy.NewSuccessResponse(pdf, meta.Format == proxy.FormatBinary), OutcomeSuccess
}

func (h *ConvertHandler) fail(ctx context.Context, span trace.Span, meta *proxy.RequestMetadata, err error) (proxy.Response, string) {
	status, body, class := proxy.HandleError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		tracing.SetError(span, err)
	}
	slog.Log(ctx, level, "compile request failed",
		append(meta.LogAttrs(),
			"status", status,
			"class", class,
			"error", err,
		)...,
	)

	return proxy.NewErrorResponse(status, body), class
}

func authResult(mode auth.Mode, presented string) string {
	switch {
	case mode == auth.ModeDisabled:
		return AuthResultDisabled
	case presented == "":
		return AuthResultAnonymous
	default:
		return AuthResultValid
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCompile(string, string, time.Duration) {}
func (nopRecorder) ObserveDocumentSize(int)                     {}
func (nopRecorder) ObservePDFSize(int)                          {}
func (nopRecorder) RecordAuthFailure(string)                    {}
