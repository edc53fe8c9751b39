package server

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/proxy/handlers"
	"texrelay-hq/texrelay/pkg/security/auth"
	"texrelay-hq/texrelay/pkg/telemetry/health"
	"texrelay-hq/texrelay/pkg/telemetry/metrics"
	"texrelay-hq/texrelay/pkg/telemetry/tracing"
)

func stubConvert() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true}`)
	})
}

func newTestServer(t *testing.T, convert http.Handler) (*Server, *metrics.Collector) {
	t.Helper()
	cfg := config.Defaults()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.New(time.Second)
	checker.RegisterCheck("compiler", func(context.Context) error { return nil })

	srv := New(cfg, convert,
		WithHealth(checker, BuildInfo{Version: "1.2.3", Commit: "abc123"}),
		WithMetrics(collector),
		WithTracer(tracing.Noop()),
	)
	return srv, collector
}

func TestHandler_Routes(t *testing.T) {
	srv, _ := newTestServer(t, stubConvert())
	h := srv.Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"convert", http.MethodPost, "/latex-convert", http.StatusOK, `"success":true`},
		{"liveness", http.MethodGet, "/health", http.StatusOK, `"status"`},
		{"readiness", http.MethodGet, "/ready", http.StatusOK, `"compiler"`},
		{"version", http.MethodGet, "/version", http.StatusOK, `1.2.3`},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, `go_goroutines`},
		{"unknown", http.MethodPost, "/api/compile", http.StatusNotFound, `"error":"Not found"`},
		{"convert subpath", http.MethodPost, "/latex-convert/extra", http.StatusNotFound, `"error":"Not found"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want substring %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandler_MiddlewareChain(t *testing.T) {
	var sawDeadline bool
	convert := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusOK)
	})
	srv, _ := newTestServer(t, convert)

	req := httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if !sawDeadline {
		t.Error("handler context has no deadline")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestHandler_Preflight(t *testing.T) {
	cfg := config.Defaults()
	cfg.Security.Authentication.Header = "X-Relay-Key"
	srv := New(cfg, stubConvert())

	req := httptest.NewRequest(http.MethodOptions, "/latex-convert", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", rec.Body.String())
	}
	if allowed := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(allowed, "X-Relay-Key") {
		t.Errorf("Access-Control-Allow-Headers = %q, want custom key header", allowed)
	}
}

func TestHandler_RecoversPanic(t *testing.T) {
	srv, _ := newTestServer(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestHandler_RecordsHTTPMetrics(t *testing.T) {
	srv, _ := newTestServer(t, stubConvert())
	h := srv.Handler()

	for _, path := range []string{"/latex-convert", "/nope"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`texrelay_http_requests_total{method="POST",route="/latex-convert",status="200"} 1`,
		`texrelay_http_requests_total{method="POST",route="other",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

type pdfCompiler struct{}

func (pdfCompiler) Compile(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.4\n%%EOF\n"), nil
}

type keySource map[string]string

func (k keySource) GetSecret(_ context.Context, name string) (string, error) {
	return k[name], nil
}

// captureAccessLog routes the default logger into a buffer and returns a
// func that finds the "request completed" entry.
func captureAccessLog(t *testing.T) func() map[string]any {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return func() map[string]any {
		t.Helper()
		for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
			var entry map[string]any
			if err := json.Unmarshal(line, &entry); err != nil {
				t.Fatalf("decode log line %q: %v", line, err)
			}
			if entry["msg"] == "request completed" {
				return entry
			}
		}
		t.Fatalf("no access log line in:\n%s", buf.String())
		return nil
	}
}

func TestHandler_AccessLogCarriesRequestID(t *testing.T) {
	accessLog := captureAccessLog(t)

	keys, err := auth.NewKeyChecker(auth.Config{Mode: auth.ModeOptional, SecretName: "latex-api-key"}, keySource{"latex-api-key": "k"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	convert := handlers.NewConvertHandler(pdfCompiler{}, keys, handlers.ConvertConfig{
		KeyHeader:        cfg.Security.Authentication.Header,
		MaxBodyBytes:     cfg.Proxy.MaxBodyBytes,
		MaxDocumentChars: cfg.Compiler.MaxDocumentChars,
	})
	srv := New(cfg, convert)

	req := httptest.NewRequest(http.MethodPost, "/latex-convert?format=binary", strings.NewReader(`{"latex":"x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("X-Request-ID missing")
	}

	entry := accessLog()
	if entry["request_id"] != id {
		t.Errorf("access log request_id = %v, want %q", entry["request_id"], id)
	}
	for key, want := range map[string]any{
		"status":  float64(200),
		"format":  "binary",
		"outcome": "success",
		"auth":    "anonymous",
	} {
		if entry[key] != want {
			t.Errorf("access log %s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestHandler_PanicIsLoggedWithRequestID(t *testing.T) {
	accessLog := captureAccessLog(t)
	srv, _ := newTestServer(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodPost, "/latex-convert", strings.NewReader(`{}`))
	req.Header.Set("X-Request-ID", "client-id-7")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	entry := accessLog()
	if entry["request_id"] != "client-id-7" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["status"] != float64(500) {
		t.Errorf("status = %v, want 500", entry["status"])
	}
}

func TestHandler_DisabledTelemetry(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telemetry.Health.Enabled = false
	cfg.Telemetry.Metrics.Enabled = false
	srv := New(cfg, stubConvert(), WithHealth(health.New(0), BuildInfo{}))

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return ln
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv, _ := newTestServer(t, stubConvert())
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServe_AlreadyRunning(t *testing.T) {
	srv, _ := newTestServer(t, stubConvert())
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for !srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := srv.Serve(ctx, listen(t)); err == nil {
		t.Error("expected error starting a running server")
	}
}

func TestShutdown_NotRunning(t *testing.T) {
	srv, _ := newTestServer(t, stubConvert())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestServe_TLSConfigError(t *testing.T) {
	cfg := config.Defaults()
	cfg.Proxy.TLS = config.TLSConfig{Enabled: true, CertFile: "missing.crt", KeyFile: "missing.key"}
	srv := New(cfg, stubConvert())

	err := srv.Serve(context.Background(), listen(t))
	if err == nil || !strings.Contains(err.Error(), "TLS") {
		t.Errorf("Serve() = %v, want TLS error", err)
	}
}

func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestServe_TLS(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t)

	cfg := config.Defaults()
	cfg.Proxy.TLS = config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"}
	srv := New(cfg, stubConvert())
	ln := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	client := &http.Client{Transport: &http.Transport{
		// #nosec G402 - self-signed test certificate
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}

	url := "https://" + ln.Addr().String() + "/latex-convert"
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = client.Post(url, "application/json", strings.NewReader(`{}`))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("TLS request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.TLS == nil || resp.TLS.Version != tls.VersionTLS13 {
		t.Errorf("connection state = %+v, want TLS 1.3", resp.TLS)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
