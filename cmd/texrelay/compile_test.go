package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"texrelay-hq/texrelay/pkg/cli"
)

func newClient(proxyURL string, binary bool) *compileClient {
	return &compileClient{
		url:    proxyURL + "/latex-convert",
		header: "x-api-key",
		binary: binary,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCompileClient_Compile(t *testing.T) {
	proxy := newTestProxy(t, nil)

	for _, binary := range []bool{true, false} {
		name := "json"
		if binary {
			name = "binary"
		}
		t.Run(name, func(t *testing.T) {
			pdf, err := newClient(proxy.URL, binary).Compile(context.Background(), `\documentclass{article}\begin{document}Hi\end{document}`)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if string(pdf) != fakePDF {
				t.Errorf("pdf = %q", pdf)
			}
		})
	}
}

func TestCompileClient_RemoteErrors(t *testing.T) {
	t.Setenv("LATEX_API_KEY", "right")
	proxy := newTestProxy(t, nil)

	tests := []struct {
		name       string
		key        string
		source     string
		wantStatus int
		wantText   string
	}{
		{"compile failure", "", `\begin{itemize}\item a`, http.StatusBadRequest, "LaTeX Error"},
		{"wrong key", "wrong", "x", http.StatusUnauthorized, "Invalid API key"},
		{"empty document", "", "", http.StatusBadRequest, "latex field is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(proxy.URL, true)
			client.apiKey = tt.key

			_, err := client.Compile(context.Background(), tt.source)
			var remote *remoteError
			if !errors.As(err, &remote) {
				t.Fatalf("error = %v, want remoteError", err)
			}
			if remote.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", remote.Status, tt.wantStatus)
			}
			if !strings.Contains(remote.Error(), tt.wantText) {
				t.Errorf("error = %q, want substring %q", remote.Error(), tt.wantText)
			}
		})
	}
}

func TestCompileClient_RejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("<html>captive portal</html>"))
	}))
	defer srv.Close()

	client := newClient(srv.URL, true)
	client.url = srv.URL
	if _, err := client.Compile(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "not a PDF") {
		t.Errorf("error = %v, want not a PDF", err)
	}
}

func TestCompileClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newClient(srv.URL, false)
	client.url = srv.URL
	_, err := client.Compile(context.Background(), "x")

	var remote *remoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusBadGateway || remote.Message != "Bad Gateway" {
		t.Errorf("error = %#v", err)
	}
}

func TestCompileFiles(t *testing.T) {
	proxy := newTestProxy(t, nil)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "build")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		t.Fatal(err)
	}

	good := filepath.Join(dir, "good.tex")
	bad := filepath.Join(dir, "bad.tex")
	missing := filepath.Join(dir, "missing.tex")
	if err := os.WriteFile(good, []byte(`\documentclass{article}\begin{document}ok\end{document}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`\begin{itemize}\item a`), 0o600); err != nil {
		t.Fatal(err)
	}

	var log bytes.Buffer
	failed := compileFiles(context.Background(), newClient(proxy.URL, true),
		[]string{good, bad, missing}, outDir, 2, cli.NewProgressReporter(&log))

	if failed != 2 {
		t.Errorf("failed = %d, want 2\n%s", failed, log.String())
	}
	pdf, err := os.ReadFile(filepath.Join(outDir, "good.pdf"))
	if err != nil {
		t.Fatalf("good.pdf not written: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("good.pdf starts with %q", pdf[:4])
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.pdf")); !os.IsNotExist(err) {
		t.Error("bad.pdf should not exist")
	}
	if !strings.Contains(log.String(), "1 compiled, 2 failed") {
		t.Errorf("progress = %s", log.String())
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src, outDir, want string
	}{
		{"paper.tex", "", "paper.pdf"},
		{"docs/ch1.tex", "", filepath.Join("docs", "ch1.pdf")},
		{"docs/ch1.tex", "build", filepath.Join("build", "ch1.pdf")},
		{"notes", "", "notes.pdf"},
	}

	for _, tt := range tests {
		if got := outputPath(tt.src, tt.outDir); got != tt.want {
			t.Errorf("outputPath(%q, %q) = %q, want %q", tt.src, tt.outDir, got, tt.want)
		}
	}
}

func TestResolveParallel(t *testing.T) {
	auto := min(max(runtime.GOMAXPROCS(0)/2, 1), 4)

	tests := []struct {
		name       string
		flag, jobs int
		want       int
	}{
		{"explicit", 3, 10, 3},
		{"capped by jobs", 8, 2, 2},
		{"auto", 0, 100, auto},
		{"single job", 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveParallel(tt.flag, tt.jobs); got != tt.want {
				t.Errorf("resolveParallel(%d, %d) = %d, want %d", tt.flag, tt.jobs, got, tt.want)
			}
		})
	}
}
