package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/telemetry/tracing"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// pdfMIME is the only content type accepted from the compiler.
const pdfMIME = "application/pdf"

// Compiler turns LaTeX source into PDF bytes.
type Compiler interface {
	Compile(ctx context.Context, source string) ([]byte, error)
}

// UpstreamObserver receives the outcome of every upstream call.
// metrics.Collector implements it.
type UpstreamObserver interface {
	ObserveUpstream(outcome string, statusCode int, duration time.Duration)
}

// Upstream outcomes reported to the observer.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
	OutcomeTooLarge  = "too_large"
)

type requestBuilder func(ctx context.Context, source string) (*http.Request, error)

// HTTPCompiler calls an external compilation service over HTTP.
type HTTPCompiler struct {
	config   config.CompilerConfig
	client   *http.Client
	build    requestBuilder
	tracer   *tracing.Tracer
	observer UpstreamObserver
}

// Option configures an HTTPCompiler.
type Option func(*HTTPCompiler)

// WithTracer wraps upstream calls in client spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *HTTPCompiler) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithObserver reports each upstream call to o.
func WithObserver(o UpstreamObserver) Option {
	return func(c *HTTPCompiler) {
		c.observer = o
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPCompiler) {
		if client != nil {
			c.client = client
		}
	}
}

// New creates an HTTPCompiler for the configured mode.
func New(cfg config.CompilerConfig, opts ...Option) (*HTTPCompiler, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler URL: %w", err)
	}

	c := &HTTPCompiler{
		config: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: cfg.Timeout,
		},
		tracer: tracing.Noop(),
	}

	switch cfg.Mode {
	case config.CompilerModeMultipart:
		c.build = c.multipartRequest(endpoint)
	case config.CompilerModeQuery:
		c.build = c.queryRequest(endpoint)
	default:
		return nil, fmt.Errorf("unsupported compiler mode %q", cfg.Mode)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Mode returns the upstream strategy in use.
func (c *HTTPCompiler) Mode() string {
	return c.config.Mode
}

// Endpoint returns the configured compiler URL.
func (c *HTTPCompiler) Endpoint() string {
	return c.config.URL
}

// Compile sends source to the compiler once and returns the PDF bytes.
func (c *HTTPCompiler) Compile(ctx context.Context, source string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanUpstream,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrCompilerMode, c.config.Mode),
			attribute.String(tracing.AttrCompilerEngine, c.config.Engine),
			attribute.Bool(tracing.AttrEscaped, c.config.EscapeSpecialChars),
		),
	)
	defer span.End()

	if c.config.EscapeSpecialChars {
		source = Escape(source)
	}

	limit := c.effectiveTimeout(ctx)

	req, err := c.build(ctx, source)
	if err != nil {
		tracing.SetError(span, err)
		return nil, fmt.Errorf("failed to build compiler request: %w", err)
	}
	req.Header.Set("Accept", pdfMIME)
	req.Header.Set("User-Agent", c.config.UserAgent)
	tracing.Inject(ctx, req.Header)

	slog.Debug("sending document to compiler",
		"mode", c.config.Mode,
		"url", c.config.URL,
		"bytes", len(source),
	)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(span, start, 0, classifyTransport(ctx, err, limit))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(span, start, resp.StatusCode, &RejectedError{
			StatusCode: resp.StatusCode,
			Detail:     c.readDetail(resp.Body),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes+1))
	if err != nil {
		return nil, c.fail(span, start, resp.StatusCode, classifyTransport(ctx, err, limit))
	}
	if int64(len(body)) > c.config.MaxResponseBytes {
		return nil, c.fail(span, start, resp.StatusCode, &ResponseTooLargeError{Limit: c.config.MaxResponseBytes})
	}

	if !mimetype.Detect(body).Is(pdfMIME) {
		return nil, c.fail(span, start, resp.StatusCode, &RejectedError{
			StatusCode: resp.StatusCode,
			Detail:     Truncate(string(body), c.config.MaxErrorDetailChars),
		})
	}

	c.observe(OutcomeSuccess, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int(tracing.AttrPDFBytes, len(body)))
	tracing.SetStatus(span, nil)

	return body, nil
}

// multipartRequest uploads the source the way texlive.net's latexcgi form does.
func (c *HTTPCompiler) multipartRequest(endpoint *url.URL) requestBuilder {
	target := endpoint.String()
	return func(ctx context.Context, source string) (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		fields := []struct{ name, value string }{
			{"filecontents[]", source},
			{"filename[]", c.config.Filename},
			{"engine", c.config.Engine},
			{"return", "pdf"},
		}
		for _, f := range fields {
			if err := w.WriteField(f.name, f.value); err != nil {
				return nil, err
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}
}

// queryRequest sends the source URL-encoded in the query string.
func (c *HTTPCompiler) queryRequest(endpoint *url.URL) requestBuilder {
	return func(ctx context.Context, source string) (*http.Request, error) {
		u := *endpoint
		q := u.Query()
		q.Set("text", source)
		q.Set("command", c.config.Engine)
		u.RawQuery = q.Encode()

		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
}

// readDetail reads enough of an error body to fill the detail field.
func (c *HTTPCompiler) readDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, int64(c.config.MaxErrorDetailChars)*utf8MaxBytes))
	return Truncate(string(data), c.config.MaxErrorDetailChars)
}

// utf8MaxBytes is the longest UTF-8 encoding of one character.
const utf8MaxBytes = 4

// effectiveTimeout is the shorter of the client timeout and the time left
// before the context deadline.
func (c *HTTPCompiler) effectiveTimeout(ctx context.Context) time.Duration {
	limit := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); limit <= 0 || remaining < limit {
			limit = remaining
		}
	}
	if limit >= time.Second {
		return limit.Round(time.Second)
	}
	return limit.Round(time.Millisecond)
}

func (c *HTTPCompiler) fail(span trace.Span, start time.Time, status int, err error) error {
	c.observe(outcomeOf(err), status, time.Since(start))
	tracing.SetError(span, err)

	slog.Debug("compiler call failed",
		"status", status,
		"error", err,
		"duration", time.Since(start),
	)
	return err
}

func (c *HTTPCompiler) observe(outcome string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(outcome, status, d)
	}
}

func classifyTransport(ctx context.Context, err error, limit time.Duration) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Timeout: limit, Cause: err}
	}
	return &TransportError{Cause: err}
}

func outcomeOf(err error) string {
	var (
		rejected *RejectedError
		timeout  *TimeoutError
		tooLarge *ResponseTooLargeError
	)
	switch {
	case errors.As(err, &rejected):
		return OutcomeRejected
	case errors.As(err, &timeout):
		return OutcomeTimeout
	case errors.As(err, &tooLarge):
		return OutcomeTooLarge
	default:
		return OutcomeTransport
	}
}
