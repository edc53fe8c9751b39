package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultConvertPath     = "/latex-convert"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestBudget   = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 2097152 // 2MB

	// CORS defaults
	DefaultCORSEnabled = true

	// TLS defaults
	DefaultTLSMinVersion = "1.3"

	// Compiler defaults
	DefaultCompilerMode                = CompilerModeMultipart
	DefaultCompilerURL                 = "https://texlive.net/cgi-bin/latexcgi"
	DefaultCompilerEngine              = "pdflatex"
	DefaultCompilerFilename            = "document.tex"
	DefaultCompilerTimeout             = 30 * time.Second
	DefaultCompilerMaxDocumentChars    = 100000
	DefaultCompilerMaxErrorDetailChars = 500
	DefaultCompilerMaxResponseBytes    = 50 << 20
	DefaultCompilerUserAgent           = "texrelay"

	// Security defaults
	DefaultAuthMode       = AuthModeOptional
	DefaultAuthHeader     = "x-api-key"
	DefaultAuthSecretName = "latex-api-key"
	DefaultSecretsCache   = true
	DefaultSecretsTTL     = 5 * time.Minute
	DefaultSecretsMaxSize = 100

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "texrelay"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 0.1
	DefaultTracingServiceName  = "texrelay"
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// Defaults returns a Config whose boolean switches are set to their
// defaults. YAML decoding on top of it only overrides keys that are present,
// so enabled-by-default features stay enabled unless a file turns them off.
// Remaining zero values are filled by ApplyDefaults.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Proxy.CORS.Enabled = DefaultCORSEnabled
	cfg.Security.Secrets.Cache.Enabled = DefaultSecretsCache
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ConvertPath == "" {
		cfg.Proxy.ConvertPath = DefaultConvertPath
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.RequestBudget == 0 {
		cfg.Proxy.RequestBudget = DefaultRequestBudget
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// CORS defaults
	if len(cfg.Proxy.CORS.AllowedOrigins) == 0 {
		cfg.Proxy.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Proxy.CORS.AllowedMethods) == 0 {
		cfg.Proxy.CORS.AllowedMethods = []string{"POST", "OPTIONS"}
	}
	if len(cfg.Proxy.CORS.AllowedHeaders) == 0 {
		cfg.Proxy.CORS.AllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type", "x-api-key"}
	}
	if len(cfg.Proxy.CORS.ExposedHeaders) == 0 {
		cfg.Proxy.CORS.ExposedHeaders = []string{"X-Request-ID", "Content-Disposition"}
	}

	// TLS defaults
	if cfg.Proxy.TLS.MinVersion == "" {
		cfg.Proxy.TLS.MinVersion = DefaultTLSMinVersion
	}

	// Compiler defaults
	if cfg.Compiler.Mode == "" {
		cfg.Compiler.Mode = DefaultCompilerMode
	}
	if cfg.Compiler.URL == "" {
		cfg.Compiler.URL = DefaultCompilerURL
	}
	if cfg.Compiler.Engine == "" {
		cfg.Compiler.Engine = DefaultCompilerEngine
	}
	if cfg.Compiler.Filename == "" {
		cfg.Compiler.Filename = DefaultCompilerFilename
	}
	if cfg.Compiler.Timeout == 0 {
		cfg.Compiler.Timeout = DefaultCompilerTimeout
	}
	if cfg.Compiler.MaxDocumentChars == 0 {
		cfg.Compiler.MaxDocumentChars = DefaultCompilerMaxDocumentChars
	}
	if cfg.Compiler.MaxErrorDetailChars == 0 {
		cfg.Compiler.MaxErrorDetailChars = DefaultCompilerMaxErrorDetailChars
	}
	if cfg.Compiler.MaxResponseBytes == 0 {
		cfg.Compiler.MaxResponseBytes = DefaultCompilerMaxResponseBytes
	}
	if cfg.Compiler.UserAgent == "" {
		cfg.Compiler.UserAgent = DefaultCompilerUserAgent
	}

	// Security defaults
	if cfg.Security.Authentication.Mode == "" {
		cfg.Security.Authentication.Mode = DefaultAuthMode
	}
	if cfg.Security.Authentication.Header == "" {
		cfg.Security.Authentication.Header = DefaultAuthHeader
	}
	if cfg.Security.Authentication.SecretName == "" {
		cfg.Security.Authentication.SecretName = DefaultAuthSecretName
	}
	if len(cfg.Security.Secrets.Providers) == 0 {
		cfg.Security.Secrets.Providers = []SecretProviderConfig{{Type: "env"}}
	}
	if cfg.Security.Secrets.Cache.TTL == 0 {
		cfg.Security.Secrets.Cache.TTL = DefaultSecretsTTL
	}
	if cfg.Security.Secrets.Cache.MaxSize == 0 {
		cfg.Security.Secrets.Cache.MaxSize = DefaultSecretsMaxSize
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30}
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
