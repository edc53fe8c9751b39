package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"texrelay-hq/texrelay/pkg/proxy/types"
)

const (
	// APIKeyHeader is the default header carrying the caller's API key.
	APIKeyHeader = "x-api-key"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"

	// FormatParam selects the response format ("binary" for raw PDF).
	FormatParam = "format"

	// FormatBinary and FormatJSON name the two response formats.
	FormatBinary = "binary"
	FormatJSON   = "json"
)

// Kinds of request validation failure.
const (
	KindMissingLatex = "missing_latex"
	KindTooLarge     = "too_large"
	KindBodyTooLarge = "body_too_large"
)

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Kind    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// ParseCompileRequest reads and validates the body of a compile request.
//
// The body is read through a limit of maxBodyBytes; a larger body fails with
// KindBodyTooLarge before any JSON is decoded. The latex field must be a
// non-empty string of at most maxChars UTF-16 code units.
func ParseCompileRequest(r *http.Request, maxBodyBytes int64, maxChars int) (*types.CompileRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &RequestError{Kind: KindMissingLatex, Message: types.MessageLatexRequired, Cause: err}
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, &RequestError{
			Kind:    KindBodyTooLarge,
			Message: types.BodyTooLargeMessage(maxBodyBytes),
			Cause:   fmt.Errorf("request body exceeds %d bytes", maxBodyBytes),
		}
	}

	var raw struct {
		Latex json.RawMessage `json:"latex"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &RequestError{Kind: KindMissingLatex, Message: types.MessageLatexRequired, Cause: err}
	}

	var req types.CompileRequest
	if len(raw.Latex) == 0 {
		return nil, &RequestError{Kind: KindMissingLatex, Message: types.MessageLatexRequired}
	}
	if err := json.Unmarshal(raw.Latex, &req.Latex); err != nil {
		return nil, &RequestError{
			Kind:    KindMissingLatex,
			Message: types.MessageLatexRequired,
			Cause:   errors.New("latex must be a string"),
		}
	}
	if req.Latex == "" {
		return nil, &RequestError{Kind: KindMissingLatex, Message: types.MessageLatexRequired}
	}

	if n := req.Length(); n > maxChars {
		return nil, &RequestError{
			Kind:    KindTooLarge,
			Message: types.LatexTooLargeMessage(maxChars),
			Cause:   fmt.Errorf("document has %d characters, limit is %d", n, maxChars),
		}
	}

	return &req, nil
}

// WantsBinary reports whether the caller asked for a raw PDF, either with
// ?format=binary or with an Accept header listing application/pdf.
func WantsBinary(r *http.Request) bool {
	if r.URL.Query().Get(FormatParam) == FormatBinary {
		return true
	}
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(strings.ToLower(accept), "application/pdf") {
			return true
		}
	}
	return false
}

// ExtractAPIKey returns the trimmed value of the key header, or "" when the
// header is absent.
func ExtractAPIKey(r *http.Request, header string) string {
	if header == "" {
		header = APIKeyHeader
	}
	return strings.TrimSpace(r.Header.Get(header))
}
