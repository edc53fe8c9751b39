package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"texrelay-hq/texrelay/pkg/config"
)

const fakePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n"

// fakeLatexCGI stands in for the external compiler. A document with an
// unterminated itemize is rejected with a LaTeX log line.
func fakeLatexCGI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	t.Cleanup(srv.Close)
	return srv
}

// newTestProxy starts the full proxy handler in front of a fake compiler.
func newTestProxy(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	upstream := fakeLatexCGI(t)

	cfg := config.Defaults()
	cfg.Compiler.URL = upstream.URL
	if mutate != nil {
		mutate(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a, err := newApp(ctx, cfg)
	if err != nil {
		cancel()
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		a.Close()
	})

	srv := httptest.NewServer(a.server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// execute runs the root command with args and returns stdout. Global flag
// variables are reset first because cobra binds them once at init.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = ""
	verbose = false
	versionFlags.output = "text"
	validateFlags.output = "text"
	keysFlags.bytes = 32
	keysFlags.encoding = "base64url"
	keysFlags.output = "text"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}
