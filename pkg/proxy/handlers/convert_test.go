package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"texrelay-hq/texrelay/pkg/compiler"
	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/proxy/types"
	"texrelay-hq/texrelay/pkg/security/auth"
	"texrelay-hq/texrelay/pkg/security/secrets"
)

const (
	helloWorld = `\documentclass{article}\begin{document}Hello World\end{document}`
	testKey    = "correct-horse-battery-staple"
	fakePDF    = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n"
)

type stubCompiler struct {
	calls  atomic.Int32
	pdf    []byte
	err    error
	ctxErr error
	source string
}

func (s *stubCompiler) Compile(ctx context.Context, source string) ([]byte, error) {
	s.calls.Add(1)
	s.ctxErr = ctx.Err()
	s.source = source
	if s.err != nil {
		return nil, s.err
	}
	return s.pdf, nil
}

type staticSource map[string]string

func (s staticSource) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", secrets.ErrNotFound
}

type recorded struct {
	outcome string
	format  string
}

type fakeRecorder struct {
	mu           sync.Mutex
	compiles     []recorded
	authFailures []string
	docSizes     []int
	pdfSizes     []int
}

func (f *fakeRecorder) RecordCompile(outcome, format string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compiles = append(f.compiles, recorded{outcome, format})
}

func (f *fakeRecorder) ObserveDocumentSize(chars int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docSizes = append(f.docSizes, chars)
}

func (f *fakeRecorder) ObservePDFSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdfSizes = append(f.pdfSizes, n)
}

func (f *fakeRecorder) RecordAuthFailure(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authFailures = append(f.authFailures, reason)
}

func newKeyChecker(t *testing.T, mode auth.Mode) *auth.KeyChecker {
	t.Helper()
	kc, err := auth.NewKeyChecker(auth.Config{Mode: mode, SecretName: "latex-api-key"}, staticSource{"latex-api-key": testKey})
	if err != nil {
		t.Fatalf("NewKeyChecker: %v", err)
	}
	return kc
}

func newHandler(t *testing.T, comp compiler.Compiler, opts ...ConvertOption) *ConvertHandler {
	t.Helper()
	return NewConvertHandler(comp, newKeyChecker(t, auth.ModeOptional), ConvertConfig{
		KeyHeader:        "x-api-key",
		MaxBodyBytes:     config.DefaultMaxBodyBytes,
		MaxDocumentChars: config.DefaultCompilerMaxDocumentChars,
	}, opts...)
}

func jsonBody(t *testing.T, latex string) io.Reader {
	t.Helper()
	b, err := json.Marshal(map[string]string{"latex": latex})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestConvert_JSONSuccess(t *testing.T) {
	comp := &stubCompiler{pdf: []byte(fakePDF)}
	rec := &fakeRecorder{}
	h := newHandler(t, comp, WithRecorder(rec))

	w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var result types.CompileResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Error("success = false")
	}
	if !strings.HasPrefix(result.PDFURL, types.PDFDataURIPrefix) {
		t.Fatalf("pdfUrl = %q", result.PDFURL)
	}
	if result.Message != types.MessageCompiled {
		t.Errorf("message = %q", result.Message)
	}

	pdf, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.PDFURL, types.PDFDataURIPrefix))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("decoded payload starts with %q", pdf[:4])
	}

	if comp.source != helloWorld {
		t.Errorf("compiler received %q", comp.source)
	}
	if len(rec.compiles) != 1 || rec.compiles[0] != (recorded{OutcomeSuccess, "json"}) {
		t.Errorf("compiles = %+v", rec.compiles)
	}
	if len(rec.docSizes) != 1 || rec.docSizes[0] != len(helloWorld) {
		t.Errorf("docSizes = %v", rec.docSizes)
	}
	if len(rec.pdfSizes) != 1 || rec.pdfSizes[0] != len(fakePDF) {
		t.Errorf("pdfSizes = %v", rec.pdfSizes)
	}
}

func TestConvert_BinarySuccess(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"accept header", func(r *http.Request) { r.Header.Set("Accept", "application/pdf") }},
		{"format query", func(r *http.Request) { r.URL.RawQuery = "format=binary" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, &stubCompiler{pdf: []byte(fakePDF)})

			req := httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld))
			tt.setup(req)
			w := serve(h, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Content-Type = %q", ct)
			}
			if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "document.pdf") {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
				t.Errorf("body starts with %q", w.Body.Bytes()[:4])
			}
		})
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	h := newHandler(t, &stubCompiler{pdf: []byte(fakePDF)})

	jsonResp := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld)))
	binResp := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert?format=binary", jsonBody(t, helloWorld)))

	var result types.CompileResult
	if err := json.Unmarshal(jsonResp.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result.PDFURL, types.PDFDataURIPrefix))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, binResp.Body.Bytes()) {
		t.Error("data URI payload differs from binary body")
	}
}

func TestConvert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty object", `{}`, types.MessageLatexRequired},
		{"empty string", `{"latex":""}`, types.MessageLatexRequired},
		{"non-string latex", `{"latex":42}`, types.MessageLatexRequired},
		{"null latex", `{"latex":null}`, types.MessageLatexRequired},
		{"malformed json", `{"latex":`, types.MessageLatexRequired},
		{"empty body", ``, types.MessageLatexRequired},
		{"over character limit", `{"latex":"` + strings.Repeat("a", config.DefaultCompilerMaxDocumentChars+1) + `"}`, types.MessageLatexTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &stubCompiler{pdf: []byte(fakePDF)}
			h := newHandler(t, comp)

			w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			body := decodeError(t, w)
			if body["error"] != tt.wantErr {
				t.Errorf("error = %q, want %q", body["error"], tt.wantErr)
			}
			if _, ok := body["details"]; ok {
				t.Errorf("unexpected details %q", body["details"])
			}
			if n := comp.calls.Load(); n != 0 {
				t.Errorf("compiler called %d times", n)
			}
		})
	}
}

func TestConvert_EmptyObjectExactBody(t *testing.T) {
	h := newHandler(t, &stubCompiler{})

	w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(`{}`)))

	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Invalid request: latex field is required"}` {
		t.Errorf("body = %s", got)
	}
}

func TestConvert_CharacterLimitBoundary(t *testing.T) {
	comp := &stubCompiler{pdf: []byte(fakePDF)}
	h := newHandler(t, comp)

	exact := strings.Repeat("x", config.DefaultCompilerMaxDocumentChars)
	if w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, exact))); w.Code != http.StatusOK {
		t.Errorf("document at the limit: status = %d", w.Code)
	}

	// Each astral-plane rune counts as two UTF-16 units.
	astral := strings.Repeat("𝔸", config.DefaultCompilerMaxDocumentChars/2+1)
	if w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, astral))); w.Code != http.StatusBadRequest {
		t.Errorf("astral document over the limit: status = %d", w.Code)
	}

	if n := comp.calls.Load(); n != 1 {
		t.Errorf("compiler called %d times, want 1", n)
	}
}

func TestConvert_BodyLimit(t *testing.T) {
	comp := &stubCompiler{pdf: []byte(fakePDF)}
	h := NewConvertHandler(comp, newKeyChecker(t, auth.ModeOptional), ConvertConfig{
		MaxBodyBytes:     64,
		MaxDocumentChars: 1000,
	})

	w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, strings.Repeat("a", 100))))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decodeError(t, w); body["error"] != "Request body too large (max 64 bytes)" {
		t.Errorf("error = %q", body["error"])
	}
	if comp.calls.Load() != 0 {
		t.Error("compiler called for oversized body")
	}
}

func TestConvert_Authentication(t *testing.T) {
	tests := []struct {
		name       string
		mode       auth.Mode
		key        string
		wantStatus int
		wantCalls  int32
		wantReason string
	}{
		{"optional, correct key", auth.ModeOptional, testKey, http.StatusOK, 1, ""},
		{"optional, no key", auth.ModeOptional, "", http.StatusOK, 1, ""},
		{"optional, wrong key", auth.ModeOptional, "nope", http.StatusUnauthorized, 0, AuthReasonInvalid},
		{"optional, prefix of key", auth.ModeOptional, testKey[:5], http.StatusUnauthorized, 0, AuthReasonInvalid},
		{"required, correct key", auth.ModeRequired, testKey, http.StatusOK, 1, ""},
		{"required, no key", auth.ModeRequired, "", http.StatusUnauthorized, 0, AuthReasonMissing},
		{"required, wrong key", auth.ModeRequired, "nope", http.StatusUnauthorized, 0, AuthReasonInvalid},
		{"disabled, wrong key", auth.ModeDisabled, "nope", http.StatusOK, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := &stubCompiler{pdf: []byte(fakePDF)}
			rec := &fakeRecorder{}
			h := NewConvertHandler(comp, newKeyChecker(t, tt.mode), ConvertConfig{
				MaxBodyBytes:     config.DefaultMaxBodyBytes,
				MaxDocumentChars: config.DefaultCompilerMaxDocumentChars,
			}, WithRecorder(rec))

			req := httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld))
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			w := serve(h, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if n := comp.calls.Load(); n != tt.wantCalls {
				t.Errorf("compiler calls = %d, want %d", n, tt.wantCalls)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Unauthorized: Invalid API key"}` {
					t.Errorf("body = %s", got)
				}
				if len(rec.authFailures) != 1 || rec.authFailures[0] != tt.wantReason {
					t.Errorf("authFailures = %v, want [%s]", rec.authFailures, tt.wantReason)
				}
			}
		})
	}
}

func TestConvert_AuthBeforeValidation(t *testing.T) {
	comp := &stubCompiler{}
	h := newHandler(t, comp)

	req := httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(`{}`))
	req.Header.Set("x-api-key", "wrong")
	w := serve(h, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 ahead of body validation", w.Code)
	}
}

func TestConvert_CompilerErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
	}{
		{
			name:        "rejected with log",
			err:         &compiler.RejectedError{StatusCode: 400, Detail: "! LaTeX Error: \\begin{itemize} on input line 1 ended by \\end{document}."},
			wantStatus:  http.StatusBadRequest,
			wantError:   types.MessageCompileFailed,
			wantDetails: "! LaTeX Error: \\begin{itemize} on input line 1 ended by \\end{document}.",
		},
		{
			name:        "rejected with empty body",
			err:         &compiler.RejectedError{StatusCode: 502},
			wantStatus:  http.StatusBadRequest,
			wantError:   types.MessageCompileFailed,
			wantDetails: "compiler returned status 502 with an empty body",
		},
		{
			name:        "timeout",
			err:         &compiler.TimeoutError{Timeout: 30 * time.Second, Cause: context.DeadlineExceeded},
			wantStatus:  http.StatusBadRequest,
			wantError:   types.MessageCompileFailed,
			wantDetails: "compiler did not respond within 30s",
		},
		{
			name:        "transport",
			err:         &compiler.TransportError{Cause: errors.New("connection refused")},
			wantStatus:  http.StatusInternalServerError,
			wantError:   types.MessageInternalError,
			wantDetails: "compiler request failed: connection refused",
		},
		{
			name:        "too large",
			err:         &compiler.ResponseTooLargeError{Limit: 1024},
			wantStatus:  http.StatusInternalServerError,
			wantError:   types.MessageInternalError,
			wantDetails: "compiler response exceeds 1024 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			h := newHandler(t, &stubCompiler{err: tt.err}, WithRecorder(rec))

			req := httptest.NewRequest(http.MethodPost, "/latex-convert?format=binary", jsonBody(t, helloWorld))
			w := serve(h, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("errors must be JSON even for binary requests, got %q", ct)
			}
			body := decodeError(t, w)
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
			if body["details"] != tt.wantDetails {
				t.Errorf("details = %q, want %q", body["details"], tt.wantDetails)
			}
			if len(rec.compiles) != 1 || rec.compiles[0].format != "binary" {
				t.Errorf("compiles = %+v", rec.compiles)
			}
		})
	}
}

func TestConvert_UpstreamIgnoresClientCancel(t *testing.T) {
	comp := &stubCompiler{pdf: []byte(fakePDF)}
	h := newHandler(t, comp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld)).WithContext(ctx)
	serve(h, req)

	if comp.ctxErr != nil {
		t.Errorf("compiler saw cancelled context: %v", comp.ctxErr)
	}
}

func TestConvert_Methods(t *testing.T) {
	tests := []struct {
		method     string
		wantStatus int
		wantEmpty  bool
	}{
		{http.MethodOptions, http.StatusOK, true},
		{http.MethodGet, http.StatusMethodNotAllowed, false},
		{http.MethodPut, http.StatusMethodNotAllowed, false},
		{http.MethodDelete, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			comp := &stubCompiler{}
			h := newHandler(t, comp)

			req := httptest.NewRequest(tt.method, "/latex-convert", strings.NewReader(`{"latex":"x"}`))
			req.Header.Set("x-api-key", "wrong")
			w := serve(h, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantEmpty && w.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", w.Body.String())
			}
			if !tt.wantEmpty {
				if body := decodeError(t, w); body["error"] != types.MessageMethodNotAllowed {
					t.Errorf("error = %q", body["error"])
				}
			}
			if comp.calls.Load() != 0 {
				t.Error("compiler called")
			}
		})
	}
}

// TestConvert_HTTPCompiler runs the handler against a real HTTPCompiler and
// a fake latexcgi service.
func TestConvert_HTTPCompiler(t *testing.T) {
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		src := r.FormValue("filecontents[]")
		if strings.Contains(src, `\begin{itemize}`) && !strings.Contains(src, `\end{itemize}`) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "! LaTeX Error: \\begin{itemize} on input line 1 ended by \\end{document}.")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, fakePDF)
	}))
	defer upstream.Close()

	comp, err := compiler.New(config.CompilerConfig{
		Mode:                config.CompilerModeMultipart,
		URL:                 upstream.URL,
		Engine:              "pdflatex",
		Filename:            "document.tex",
		Timeout:             5 * time.Second,
		MaxDocumentChars:    config.DefaultCompilerMaxDocumentChars,
		MaxErrorDetailChars: config.DefaultCompilerMaxErrorDetailChars,
		MaxResponseBytes:    1 << 20,
		UserAgent:           "texrelay-test",
	})
	if err != nil {
		t.Fatal(err)
	}
	h := newHandler(t, comp)

	t.Run("hello world", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, helloWorld)))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"pdfUrl":"data:application/pdf;base64,`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("unterminated itemize", func(t *testing.T) {
		src := `\documentclass{article}\begin{document}\begin{itemize}\item one\end{document}`
		w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, src)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		body := decodeError(t, w)
		if body["error"] == "" || !strings.Contains(body["details"], "LaTeX Error") {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("oversized never reaches upstream", func(t *testing.T) {
		before := upstreamCalls.Load()
		big := strings.Repeat("%", config.DefaultCompilerMaxDocumentChars+1)
		w := serve(h, httptest.NewRequest(http.MethodPost, "/latex-convert", jsonBody(t, big)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
		if upstreamCalls.Load() != before {
			t.Error("oversized document reached the compiler")
		}
	})
}

func TestNotFoundHandler(t *testing.T) {
	w := serve(NotFoundHandler(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if body := decodeError(t, w); body["error"] != types.MessageNotFound {
		t.Errorf("error = %q", body["error"])
	}
}

func TestAuthResult(t *testing.T) {
	tests := []struct {
		mode      auth.Mode
		presented string
		want      string
	}{
		{auth.ModeDisabled, "anything", AuthResultDisabled},
		{auth.ModeOptional, "", AuthResultAnonymous},
		{auth.ModeOptional, testKey, AuthResultValid},
		{auth.ModeRequired, testKey, AuthResultValid},
	}

	for _, tt := range tests {
		if got := authResult(tt.mode, tt.presented); got != tt.want {
			t.Errorf("authResult(%s, %q) = %q, want %q", tt.mode, tt.presented, got, tt.want)
		}
	}
}
