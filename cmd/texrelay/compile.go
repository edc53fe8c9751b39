package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"texrelay-hq/texrelay/pkg/cli"
	"texrelay-hq/texrelay/pkg/proxy/types"
)

var compileFlags struct {
	url      string
	apiKey   string
	wire     string
	outDir   string
	parallel int
	timeout  time.Duration
}

var compileCmd = &cobra.Command{
	Use:   "compile [file.tex ...]",
	Short: "Compile documents through a running proxy",
	Long: `Send LaTeX files to a texrelay proxy and write the PDFs next to them, or
into --out-dir. A single "-" reads the document from stdin and writes the PDF
to stdout.

The proxy URL defaults to the configured listen address and convert path.
The API key defaults to $LATEX_API_KEY.

Examples:
  # Compile one file
  texrelay compile paper.tex

  # Compile a batch in parallel into build/
  texrelay compile chapters/*.tex --out-dir build --parallel 4

  # Pipe through a remote proxy using the JSON response shape
  cat note.tex | texrelay compile - --url https://tex.example.com/latex-convert --wire json > note.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: compileDocuments,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVar(&compileFlags.url, "url", "", "proxy endpoint (default from config)")
	compileCmd.Flags().StringVar(&compileFlags.apiKey, "api-key", "", "API key (default $LATEX_API_KEY)")
	compileCmd.Flags().StringVar(&compileFlags.wire, "wire", "binary", "response shape to request: binary, json")
	compileCmd.Flags().StringVar(&compileFlags.outDir, "out-dir", "", "directory for PDFs (default next to each source)")
	compileCmd.Flags().IntVarP(&compileFlags.parallel, "parallel", "p", 0, "concurrent compiles (0 = auto)")
	compileCmd.Flags().DurationVar(&compileFlags.timeout, "timeout", 60*time.Second, "per-document timeout")
}

// compileClient posts documents to a texrelay proxy.
type compileClient struct {
	url    string
	header string
	apiKey string
	binary bool
	http   *http.Client
}

// remoteError is an error body returned by the proxy.
type remoteError struct {
	Status  int
	Message string
	Details string
}

func (e *remoteError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
}

// Compile sends source and returns the PDF bytes.
func (c *compileClient) Compile(ctx context.Context, source string) ([]byte, error) {
	body, err := json.Marshal(types.CompileRequest{Latex: source})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.binary {
		req.Header.Set("Accept", "application/pdf")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(c.header, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var result types.ErrorResult
		if err := json.Unmarshal(data, &result); err != nil || result.Error == "" {
			return nil, &remoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &remoteError{Status: resp.StatusCode, Message: result.Error, Details: result.Details}
	}

	pdf := data
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/pdf") {
		var result types.CompileResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid JSON response: %w", err)
		}
		encoded, ok := strings.CutPrefix(result.PDFURL, types.PDFDataURIPrefix)
		if !result.Success || !ok {
			return nil, fmt.Errorf("unexpected response: %s", result.Message)
		}
		if pdf, err = base64.StdEncoding.DecodeString(encoded); err != nil {
			return nil, fmt.Errorf("invalid pdfUrl payload: %w", err)
		}
	}

	if mt := mimetype.Detect(pdf); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("response is %s, not a PDF", mt.String())
	}
	return pdf, nil
}

// resolveParallel picks the worker count: the flag when set, otherwise
// half of GOMAXPROCS clamped to 1..4.
func resolveParallel(flag, jobs int) int {
	n := flag
	if n <= 0 {
		n = min(max(runtime.GOMAXPROCS(0)/2, 1), 4)
	}
	return max(min(n, jobs), 1)
}

// outputPath maps a source file to its PDF path.
func outputPath(src, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".pdf"
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), name)
	}
	return filepath.Join(outDir, name)
}

func newCompileClient() (*compileClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	switch compileFlags.wire {
	case "binary", "json":
	default:
		return nil, fmt.Errorf("invalid --wire %q (must be binary or json)", compileFlags.wire)
	}

	endpoint := compileFlags.url
	if endpoint == "" {
		scheme := "http"
		if cfg.Proxy.TLS.Enabled {
			scheme = "https"
		}
		host, port, err := net.SplitHostPort(cfg.Proxy.ListenAddress)
		if err != nil {
			return nil, fmt.Errorf("cannot derive proxy URL from %q: %w", cfg.Proxy.ListenAddress, err)
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		endpoint = scheme + "://" + net.JoinHostPort(host, port) + cfg.Proxy.ConvertPath
	}

	apiKey := compileFlags.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("LATEX_API_KEY")
	}

	return &compileClient{
		url:    endpoint,
		header: cfg.Security.Authentication.Header,
		apiKey: apiKey,
		binary: compileFlags.wire == "binary",
		http:   &http.Client{Timeout: compileFlags.timeout},
	}, nil
}

func compileDocuments(cmd *cobra.Command, args []string) error {
	client, err := newCompileClient()
	if err != nil {
		return err
	}

	if len(args) == 1 && args[0] == "-" {
		return compileStdin(cmd, client)
	}

	if compileFlags.outDir != "" {
		if err := os.MkdirAll(compileFlags.outDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	progress := cli.NewProgressReporter(cmd.ErrOrStderr())
	failed := compileFiles(cmd.Context(), client, args, compileFlags.outDir, resolveParallel(compileFlags.parallel, len(args)), progress)
	if failed > 0 {
		return cli.NewCommandError("compile", fmt.Errorf("%d of %d documents failed", failed, len(args)))
	}
	return nil
}

// compileFiles compiles every file with up to parallel requests in flight
// and returns the number of failures.
func compileFiles(ctx context.Context, client *compileClient, files []string, outDir string, parallel int, progress cli.ProgressReporter) int {
	if ctx == nil {
		ctx = context.Background()
	}
	progress.Start(len(files))

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				start := time.Now()
				err := compileFile(ctx, client, file, outputPath(file, outDir))
				progress.Done(file, time.Since(start), err)
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	return progress.Finish()
}

func compileFile(ctx context.Context, client *compileClient, src, dst string) error {
	// #nosec G304 - user-specified input path is expected for a CLI tool
	source, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	pdf, err := client.Compile(ctx, string(source))
	if err != nil {
		return err
	}

	// #nosec G306 - output PDFs are not secret
	return os.WriteFile(dst, pdf, 0644)
}

func compileStdin(cmd *cobra.Command, client *compileClient) error {
	source, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pdf, err := client.Compile(ctx, string(source))
	if err != nil {
		return cli.NewCommandError("compile", err)
	}

	_, err = cmd.OutOrStdout().Write(pdf)
	return err
}
