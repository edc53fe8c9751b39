// Package server provides the HTTP server for the LaTeX compile proxy.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/proxy/handlers"
	"texrelay-hq/texrelay/pkg/proxy/middleware"
	certs "texrelay-hq/texrelay/pkg/security/tls"
	"texrelay-hq/texrelay/pkg/telemetry/health"
	"texrelay-hq/texrelay/pkg/telemetry/metrics"
	"texrelay-hq/texrelay/pkg/telemetry/tracing"
)

// BuildInfo is reported on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server is the HTTP server for the compile proxy.
type Server struct {
	config  *config.Config
	convert http.Handler
	health  *health.Checker
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	build   BuildInfo

	httpServer *http.Server
	reloader   *certs.CertificateReloader
	listener   net.Listener

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures a Server.
type Option func(*Server)

// WithHealth mounts the liveness, readiness and version endpoints.
func WithHealth(checker *health.Checker, build BuildInfo) Option {
	return func(s *Server) {
		s.health = checker
		s.build = build
	}
}

// WithMetrics records HTTP metrics and mounts the Prometheus endpoint.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithTracer starts a server span for every request.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// New creates a server that routes the configured convert path to convert.
func New(cfg *config.Config, convert http.Handler, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		convert: convert,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Proxy.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Proxy.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("server is already running")
	}

	proxyCfg := s.config.Proxy
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    proxyCfg.ReadTimeout,
		WriteTimeout:   proxyCfg.WriteTimeout,
		IdleTimeout:    proxyCfg.IdleTimeout,
		MaxHeaderBytes: proxyCfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	tlsConfig, reloader, err := certs.NewServerConfig(proxyCfg.TLS)
	if err != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("failed to configure TLS: %w", err)
	}
	if tlsConfig != nil {
		s.httpServer.TLSConfig = tlsConfig
		s.reloader = reloader
	}

	s.listener = ln
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server",
			"address", ln.Addr().String(),
			"convert_path", proxyCfg.ConvertPath,
			"tls_enabled", tlsConfig != nil,
		)

		var err error
		if tlsConfig != nil {
			// Certificates come from TLSConfig.GetCertificate
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		_ = s.Shutdown(context.Background())
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight compiles.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.Proxy.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		if s.reloader != nil {
			if err := s.reloader.Close(); err != nil {
				slog.Warn("failed to stop certificate watcher", "error", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server is listening on, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	routes := []string{s.config.Proxy.ConvertPath}

	mux.Handle(s.config.Proxy.ConvertPath, s.convert)

	if hc := s.config.Telemetry.Health; hc.Enabled && s.health != nil {
		s.health.Register(mux, health.Paths{
			Liveness:  hc.LivenessPath,
			Readiness: hc.ReadinessPath,
			Version:   hc.VersionPath,
		}, s.build.Version, s.build.Commit, s.build.BuildTime)
		routes = append(routes, hc.LivenessPath, hc.ReadinessPath, hc.VersionPath)
	}

	if mc := s.config.Telemetry.Metrics; mc.Enabled && s.metrics != nil {
		mux.Handle(mc.Path, s.metrics.Handler())
		routes = append(routes, mc.Path)
	}

	mux.Handle("/", handlers.NotFoundHandler())

	var handler http.Handler = mux

	// Deadline for the whole request
	handler = middleware.TimeoutMiddleware(s.config.Proxy.RequestBudget)(handler)

	corsConfig := middleware.NewCORSConfig(s.config.Proxy.CORS, s.authHeader())
	handler = middleware.CORSMiddleware(corsConfig)(handler)

	var recorder middleware.HTTPRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	handler = middleware.MetricsMiddleware(recorder, routes...)(handler)

	if s.tracer != nil {
		handler = s.tracer.HTTPMiddleware(handler)
	}

	handler = middleware.RecoveryMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	// Outermost, so the access log and panic log carry the ID.
	handler = middleware.RequestIDMiddleware(handler)

	return handler
}

// authHeader is added to the CORS allow list so browsers may send the key.
func (s *Server) authHeader() string {
	auth := s.config.Security.Authentication
	if auth.Mode == config.AuthModeDisabled {
		return ""
	}
	return auth.Header
}
