package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader records the first status code written.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// accessFields collects attributes that handlers contribute to the
// completed-request line.
type accessFields struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// AnnotateAccessLog adds attributes to the access log line of the request
// in ctx. Later values for the same key win. It is a no-op outside
// LoggingMiddleware.
//
//	middleware.AnnotateAccessLog(ctx, slog.String("format", "binary"))
func AnnotateAccessLog(ctx context.Context, attrs ...slog.Attr) {
	f, ok := ctx.Value(accessFieldsKey).(*accessFields)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range attrs {
		replaced := false
		for i := range f.attrs {
			if f.attrs[i].Key == a.Key {
				f.attrs[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			f.attrs = append(f.attrs, a)
		}
	}
}

func (f *accessFields) snapshot() []slog.Attr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]slog.Attr(nil), f.attrs...)
}

// LoggingMiddleware writes one "request completed" line per request with
// method, path, status, size, latency and request ID, plus whatever the
// handler added through AnnotateAccessLog. 4xx responses log at warn and
// 5xx at error. Request bodies and key headers are never logged.
//
// The request ID is read from the context, so RequestIDMiddleware must wrap
// this middleware.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fields := &accessFields{}
		ctx := context.WithValue(r.Context(), StartTimeKey, start)
		ctx = context.WithValue(ctx, accessFieldsKey, fields)

		rw := newResponseWriter(w)
		requestID := GetRequestID(ctx)

		slog.DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)

		next.ServeHTTP(rw, r.WithContext(ctx))

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.statusCode),
			slog.Int("bytes", rw.bytes),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("request_id", requestID),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		}
		attrs = append(attrs, fields.snapshot()...)

		slog.LogAttrs(ctx, level, "request completed", attrs...)
	})
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
