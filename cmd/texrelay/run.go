package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"texrelay-hq/texrelay/pkg/cli"
	"texrelay-hq/texrelay/pkg/compiler"
	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/proxy/handlers"
	"texrelay-hq/texrelay/pkg/security/auth"
	"texrelay-hq/texrelay/pkg/security/secrets"
	"texrelay-hq/texrelay/pkg/server"
	"texrelay-hq/texrelay/pkg/telemetry/health"
	"texrelay-hq/texrelay/pkg/telemetry/logging"
	"texrelay-hq/texrelay/pkg/telemetry/metrics"
	"texrelay-hq/texrelay/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the compile proxy",
	Long: `Start the compile proxy with the specified configuration.

The server listens on the configured address and serves POST /latex-convert,
forwarding each document to the external compiler.

Examples:
  # Start from defaults and environment
  LATEX_API_KEY=secret texrelay run

  # Start with custom config
  texrelay run --config /etc/texrelay/config.yaml

  # Override listen address
  texrelay run --listen 0.0.0.0:8080

  # Validate config without starting server
  texrelay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	if err := a.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// app owns every long-lived component of a running proxy.
type app struct {
	server    *server.Server
	tracer    *tracing.Tracer
	secrets   *secrets.Manager
	scheduler *secrets.RefreshScheduler
	compiler  *compiler.HTTPCompiler
	keys      *auth.KeyChecker
}

// newApp builds the proxy from cfg. The secret refresh scheduler stops
// when ctx is cancelled.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	slog.Info("starting texrelay",
		"version", Version,
		"config", cfgFile,
		"compiler_mode", cfg.Compiler.Mode,
		"compiler_url", cfg.Compiler.URL,
		"auth_mode", cfg.Security.Authentication.Mode,
	)

	manager, err := secrets.NewManagerFromConfig(cfg.Security.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secret providers: %w", err)
	}
	a.secrets = manager

	if cfg.Security.Secrets.RefreshSchedule != "" {
		a.scheduler = secrets.NewRefreshScheduler(manager, cfg.Security.Secrets.RefreshSchedule)
		if err := a.scheduler.Start(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	keys, err := auth.NewKeyChecker(auth.Config{
		Mode:       auth.Mode(cfg.Security.Authentication.Mode),
		SecretName: cfg.Security.Authentication.SecretName,
	}, manager)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.keys = keys
	warnAuthMode(ctx, cfg, keys, manager)

	tracer, err := tracing.New(tracingConfig(cfg), Version)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracer = tracer

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	comp, err := compiler.New(cfg.Compiler,
		compiler.WithTracer(tracer),
		compiler.WithObserver(collector),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.compiler = comp

	convert := handlers.NewConvertHandler(comp, keys, handlers.ConvertConfig{
		KeyHeader:        cfg.Security.Authentication.Header,
		MaxBodyBytes:     cfg.Proxy.MaxBodyBytes,
		MaxDocumentChars: cfg.Compiler.MaxDocumentChars,
	},
		handlers.WithTracer(tracer),
		handlers.WithRecorder(collector),
	)

	checker, err := newHealthChecker(cfg, keys)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.server = server.New(cfg, convert,
		server.WithHealth(checker, server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		}),
		server.WithMetrics(collector),
		server.WithTracer(tracer),
	)

	return a, nil
}

func newHealthChecker(cfg *config.Config, keys *auth.KeyChecker) (*health.Checker, error) {
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)

	if keys.Mode() != auth.ModeDisabled {
		checker.RegisterCheck("api_key", health.ReadinessCheck(keys))
	}

	dial, err := health.DialCheck(cfg.Compiler.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler URL for readiness: %w", err)
	}
	checker.RegisterCheck("compiler", dial)

	return checker, nil
}

// warnAuthMode flags configurations that accept unauthenticated requests
// and a missing expected key, which makes every keyed request fail.
func warnAuthMode(ctx context.Context, cfg *config.Config, keys *auth.KeyChecker, source auth.SecretSource) {
	switch keys.Mode() {
	case auth.ModeOptional:
		slog.Warn("authentication mode is optional: requests without an API key are accepted; set security.authentication.mode to required to enforce keys",
			"header", cfg.Security.Authentication.Header,
		)
	case auth.ModeDisabled:
		slog.Warn("authentication is disabled: every request is accepted")
		return
	}

	name := cfg.Security.Authentication.SecretName
	if _, err := source.GetSecret(ctx, name); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			slog.Warn("expected API key not found; keyed requests are rejected until it is provisioned",
				"secret_name", name,
				"providers", providerTypes(cfg),
			)
			return
		}
		slog.Warn("expected API key unavailable", "error", err)
	}
}

// tracingConfig returns a copy of the tracing config with IgnorePaths set to
// the health, version and metrics routes when the file left it unset.
func tracingConfig(cfg *config.Config) *config.TracingConfig {
	tc := cfg.Telemetry.Tracing
	if tc.IgnorePaths == nil {
		tc.IgnorePaths = []string{
			cfg.Telemetry.Health.LivenessPath,
			cfg.Telemetry.Health.ReadinessPath,
			cfg.Telemetry.Health.VersionPath,
			cfg.Telemetry.Metrics.Path,
		}
	}
	return &tc
}

func providerTypes(cfg *config.Config) []string {
	types := make([]string, 0, len(cfg.Security.Secrets.Providers))
	for _, p := range cfg.Security.Secrets.Providers {
		types = append(types, p.Type)
	}
	return types
}

// Close stops background work and flushes telemetry. It is safe to call on
// a partially built app.
func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.secrets != nil {
		if err := a.secrets.Close(); err != nil {
			slog.Warn("failed to close secret providers", "error", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to shut down tracer", "error", err)
		}
	}
}
