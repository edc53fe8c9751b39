package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates UUIDv7 when absent", func(t *testing.T) {
		var ctxID string
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = GetRequestID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/latex-convert", nil))

		headerID := w.Header().Get(RequestIDHeader)
		if headerID == "" {
			t.Fatal("expected X-Request-ID response header")
		}
		if headerID != ctxID {
			t.Errorf("header %q != context %q", headerID, ctxID)
		}
		id, err := uuid.Parse(headerID)
		if err != nil {
			t.Fatalf("request ID %q is not a UUID: %v", headerID, err)
		}
		if id.Version() != 7 {
			t.Errorf("UUID version = %d, want 7", id.Version())
		}
	})

	t.Run("keeps valid client ID", func(t *testing.T) {
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodPost, "/latex-convert", nil)
		req.Header.Set(RequestIDHeader, "client-abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "client-abc-123" {
			t.Errorf("X-Request-ID = %q, want client-abc-123", got)
		}
	})

	t.Run("replaces invalid client IDs", func(t *testing.T) {
		for _, bad := range []string{strings.Repeat("a", 129), "has space", "tab\tid"} {
			handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest(http.MethodPost, "/latex-convert", nil)
			req.Header.Set(RequestIDHeader, bad)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == bad {
				t.Errorf("invalid ID %q was accepted", bad)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("replacement %q is not a UUID", got)
			}
		}
	})

	t.Run("unique per request", func(t *testing.T) {
		seen := make(map[string]bool)
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		for i := 0; i < 100; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			id := w.Header().Get(RequestIDHeader)
			if seen[id] {
				t.Fatalf("duplicate request ID %q", id)
			}
			seen[id] = true
		}
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
