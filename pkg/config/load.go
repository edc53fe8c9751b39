package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Defaults and fills remaining zero values.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TEXRELAY_SECTION_FIELD (e.g., TEXRELAY_PROXY_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults, so the server can
// be configured from the environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Defaults()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean, or duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	setString("TEXRELAY_PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	setString("TEXRELAY_PROXY_CONVERT_PATH", &cfg.Proxy.ConvertPath)
	setDuration("TEXRELAY_PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	setDuration("TEXRELAY_PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	setDuration("TEXRELAY_PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	setDuration("TEXRELAY_PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	setDuration("TEXRELAY_PROXY_REQUEST_BUDGET", &cfg.Proxy.RequestBudget)
	setInt("TEXRELAY_PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	if val := os.Getenv("TEXRELAY_PROXY_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Proxy.MaxBodyBytes = i
		}
	}
	setBool("TEXRELAY_PROXY_CORS_ENABLED", &cfg.Proxy.CORS.Enabled)
	if val := os.Getenv("TEXRELAY_PROXY_CORS_ALLOWED_ORIGINS"); val != "" {
		cfg.Proxy.CORS.AllowedOrigins = splitList(val)
	}

	setBool("TEXRELAY_PROXY_TLS_ENABLED", &cfg.Proxy.TLS.Enabled)
	setString("TEXRELAY_PROXY_TLS_CERT_FILE", &cfg.Proxy.TLS.CertFile)
	setString("TEXRELAY_PROXY_TLS_KEY_FILE", &cfg.Proxy.TLS.KeyFile)

	// Compiler overrides
	setString("TEXRELAY_COMPILER_MODE", &cfg.Compiler.Mode)
	setString("TEXRELAY_COMPILER_URL", &cfg.Compiler.URL)
	setString("TEXRELAY_COMPILER_ENGINE", &cfg.Compiler.Engine)
	setBool("TEXRELAY_COMPILER_ESCAPE_SPECIAL_CHARS", &cfg.Compiler.EscapeSpecialChars)
	setDuration("TEXRELAY_COMPILER_TIMEOUT", &cfg.Compiler.Timeout)
	setInt("TEXRELAY_COMPILER_MAX_DOCUMENT_CHARS", &cfg.Compiler.MaxDocumentChars)

	// Security overrides
	setString("TEXRELAY_SECURITY_AUTHENTICATION_MODE", &cfg.Security.Authentication.Mode)
	setString("TEXRELAY_SECURITY_AUTHENTICATION_HEADER", &cfg.Security.Authentication.Header)
	setString("TEXRELAY_SECURITY_AUTHENTICATION_SECRET_NAME", &cfg.Security.Authentication.SecretName)
	setString("TEXRELAY_SECURITY_SECRETS_REFRESH_SCHEDULE", &cfg.Security.Secrets.RefreshSchedule)

	// Telemetry overrides
	setString("TEXRELAY_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("TEXRELAY_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("TEXRELAY_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("TEXRELAY_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setBool("TEXRELAY_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("TEXRELAY_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("TEXRELAY_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func setString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func setBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
