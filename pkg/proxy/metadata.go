package proxy

import (
	"net/http"
	"time"
)

// RequestMetadata contains facts about a compile request used for logging
// and tracing. It never holds the document or the API key.
type RequestMetadata struct {
	// RequestID is a unique identifier for the request.
	RequestID string

	// Method is the HTTP method.
	Method string

	// Path is the HTTP request path.
	Path string

	// RemoteAddr is the client's address.
	RemoteAddr string

	// UserAgent is the client's user agent string.
	UserAgent string

	// Format is the negotiated response format.
	Format string

	// KeyPresented is true when the request carried an API key header.
	KeyPresented bool

	// Timestamp is when the request was received.
	Timestamp time.Time
}

// ExtractRequestMetadata collects request facts. requestID comes from the
// request ID middleware.
func ExtractRequestMetadata(r *http.Request, requestID, keyHeader string) *RequestMetadata {
	format := FormatJSON
	if WantsBinary(r) {
		format = FormatBinary
	}

	return &RequestMetadata{
		RequestID:    requestID,
		Method:       r.Method,
		Path:         r.URL.Path,
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.UserAgent(),
		Format:       format,
		KeyPresented: ExtractAPIKey(r, keyHeader) != "",
		Timestamp:    time.Now(),
	}
}

// LogAttrs returns the metadata as slog key-value pairs.
func (m *RequestMetadata) LogAttrs() []any {
	return []any{
		"request_id", m.RequestID,
		"method", m.Method,
		"path", m.Path,
		"remote_addr", m.RemoteAddr,
		"format", m.Format,
		"key_presented", m.KeyPresented,
	}
}
