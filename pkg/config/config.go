package config

import "time"

// Config is the root configuration structure for texrelay.
// It contains the HTTP server settings, the external compiler integration,
// authentication and secret resolution, and observability settings.
type Config struct {
	// Proxy contains HTTP server configuration including listen address,
	// timeouts, request limits, and CORS.
	Proxy ProxyConfig `yaml:"proxy"`

	// Compiler contains configuration for the external LaTeX compilation
	// service that every request is forwarded to.
	Compiler CompilerConfig `yaml:"compiler"`

	// Security contains API key authentication and secret provider settings.
	Security SecurityConfig `yaml:"security"`

	// Telemetry contains configuration for logging, metrics, tracing, and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ConvertPath is the route that accepts compile requests.
	// Default: "/latex-convert"
	ConvertPath string `yaml:"convert_path"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must be at least RequestBudget or successful compiles
	// near the budget will be cut off.
	// Default: 35s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestBudget is the wall-clock budget for one compile request,
	// including the call to the external compiler. Exceeding it is reported
	// to the caller as a compilation failure.
	// Default: 30s
	RequestBudget time.Duration `yaml:"request_budget"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes caps the raw JSON request body. A body larger than this
	// is rejected as an oversized document.
	// Default: 2097152 (2MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS contains HTTPS listener configuration.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains configuration for serving HTTPS directly.
// Most deployments terminate TLS in front of the proxy and leave this off.
type TLSConfig struct {
	// Enabled switches the listener to HTTPS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// WatchCerts reloads the key pair when either file changes on disk.
	// Default: false
	WatchCerts bool `yaml:"watch_certs"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// x-api-key must stay in this list for browser callers that send a key.
	// Default: ["authorization", "x-client-info", "apikey", "content-type", "x-api-key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Request-ID", "Content-Disposition"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 0 (header omitted)
	MaxAge int `yaml:"max_age"`
}

// Compiler integration modes.
const (
	// CompilerModeMultipart uploads the source as a multipart file field.
	CompilerModeMultipart = "multipart"

	// CompilerModeQuery sends the source URL-encoded in a GET query string.
	CompilerModeQuery = "query"
)

// CompilerConfig contains configuration for the external LaTeX compiler.
// Mode and EscapeSpecialChars are decided once per deployment; the proxy
// never switches strategy per request.
type CompilerConfig struct {
	// Mode selects the upstream integration strategy.
	// Options: "multipart", "query"
	// Default: "multipart"
	Mode string `yaml:"mode"`

	// URL is the compile endpoint.
	// Default: "https://texlive.net/cgi-bin/latexcgi"
	URL string `yaml:"url"`

	// Engine is the TeX engine requested from the compiler.
	// Default: "pdflatex"
	Engine string `yaml:"engine"`

	// Filename is the name the source is uploaded under in multipart mode.
	// Default: "document.tex"
	Filename string `yaml:"filename"`

	// EscapeSpecialChars escapes # $ % & ~ _ ^ { } \ before forwarding,
	// turning them into printable glyphs instead of LaTeX syntax. This
	// changes compilation semantics for any real document.
	// Default: false
	EscapeSpecialChars bool `yaml:"escape_special_chars"`

	// Timeout bounds the upstream HTTP call.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxDocumentChars is the largest accepted source, in UTF-16 code units.
	// Default: 100000
	MaxDocumentChars int `yaml:"max_document_chars"`

	// MaxErrorDetailChars caps the upstream body excerpt returned on failure.
	// Default: 500
	MaxErrorDetailChars int `yaml:"max_error_detail_chars"`

	// MaxResponseBytes caps the PDF read from the compiler.
	// Default: 52428800 (50MB)
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// UserAgent is sent on upstream requests.
	// Default: "texrelay/<version>"
	UserAgent string `yaml:"user_agent"`
}

// Authentication modes.
const (
	// AuthModeOptional accepts requests without a key but rejects a wrong key.
	// Any caller can bypass authentication by omitting the header.
	AuthModeOptional = "optional"

	// AuthModeRequired rejects requests that do not carry the correct key.
	AuthModeRequired = "required"

	// AuthModeDisabled ignores the key header entirely.
	AuthModeDisabled = "disabled"
)

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// Authentication contains API key authentication configuration.
	Authentication AuthenticationConfig `yaml:"authentication"`

	// Secrets contains secret management configuration.
	Secrets SecretsConfig `yaml:"secrets"`
}

// AuthenticationConfig contains API key authentication configuration.
type AuthenticationConfig struct {
	// Mode is the key policy.
	// Options: "optional", "required", "disabled"
	// Default: "optional"
	Mode string `yaml:"mode"`

	// Header is the request header that carries the key.
	// Default: "x-api-key"
	Header string `yaml:"header"`

	// SecretName is the name of the expected key in the secret providers.
	// With the env provider and an empty prefix, "latex-api-key" is read
	// from LATEX_API_KEY.
	// Default: "latex-api-key"
	SecretName string `yaml:"secret_name"`
}

// SecretsConfig contains secret management configuration.
type SecretsConfig struct {
	// Providers is a list of secret providers to use.
	// Providers are tried in order until one successfully returns a value.
	// Default: [{type: env}]
	Providers []SecretProviderConfig `yaml:"providers"`

	// Cache contains secret caching configuration.
	Cache SecretsCacheConfig `yaml:"cache"`

	// RefreshSchedule is a cron expression for periodic secret refresh.
	// Empty disables scheduled refresh.
	// Example: "@every 5m", "0 * * * *"
	RefreshSchedule string `yaml:"refresh_schedule"`
}

// SecretProviderConfig contains configuration for a secret provider.
type SecretProviderConfig struct {
	// Type is the provider type.
	// Options: "env", "file"
	Type string `yaml:"type"`

	// Prefix is the environment variable prefix (for "env" provider).
	// Example: "TEXRELAY_SECRET_"
	Prefix string `yaml:"prefix,omitempty"`

	// Path is the directory holding one file per secret (for "file" provider).
	// Example: "/var/run/secrets/texrelay"
	Path string `yaml:"path,omitempty"`

	// Watch enables fsnotify-based cache invalidation (for "file" provider).
	Watch bool `yaml:"watch,omitempty"`
}

// SecretsCacheConfig contains configuration for secret caching.
type SecretsCacheConfig struct {
	// Enabled controls whether secret caching is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is the time-to-live for cached secrets.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// MaxSize is the maximum number of secrets to cache.
	// Default: 100
	MaxSize int `yaml:"max_size"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "texrelay"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for compile duration (seconds).
	// Default: [0.25, 0.5, 1, 2, 5, 10, 20, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "texrelay"
	ServiceName string `yaml:"service_name"`

	// IgnorePaths are request paths that never start a sampled trace.
	// When unset, the health, version and metrics paths are used.
	IgnorePaths []string `yaml:"ignore_paths"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
