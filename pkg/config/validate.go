package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateCompiler(&cfg.Compiler)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "proxy.listen_address", Message: "listen address is required"})
	}
	if !strings.HasPrefix(cfg.ConvertPath, "/") {
		errs = append(errs, FieldError{Field: "proxy.convert_path", Message: "path must start with /"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "proxy.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.RequestBudget <= 0 {
		errs = append(errs, FieldError{Field: "proxy.request_budget", Message: "request budget must be positive"})
	}
	if cfg.WriteTimeout > 0 && cfg.WriteTimeout < cfg.RequestBudget {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: fmt.Sprintf("write timeout %s is shorter than request budget %s", cfg.WriteTimeout, cfg.RequestBudget),
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "proxy.max_body_bytes", Message: "max body bytes must be positive"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "proxy.cors.max_age", Message: "max age must be non-negative"})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "proxy.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "proxy.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}
	if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "proxy.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion),
		})
	}

	return errs
}

func validateCompiler(cfg *CompilerConfig) []FieldError {
	var errs []FieldError

	if cfg.Mode != CompilerModeMultipart && cfg.Mode != CompilerModeQuery {
		errs = append(errs, FieldError{
			Field:   "compiler.mode",
			Message: fmt.Sprintf("invalid mode %q (must be %q or %q)", cfg.Mode, CompilerModeMultipart, CompilerModeQuery),
		})
	}

	u, err := url.Parse(cfg.URL)
	switch {
	case cfg.URL == "":
		errs = append(errs, FieldError{Field: "compiler.url", Message: "compiler URL is required"})
	case err != nil:
		errs = append(errs, FieldError{Field: "compiler.url", Message: fmt.Sprintf("invalid URL: %v", err)})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, FieldError{Field: "compiler.url", Message: "URL scheme must be http or https"})
	case u.Host == "":
		errs = append(errs, FieldError{Field: "compiler.url", Message: "URL host is required"})
	}

	if cfg.Engine == "" {
		errs = append(errs, FieldError{Field: "compiler.engine", Message: "engine is required"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "compiler.timeout", Message: "timeout must be positive"})
	}
	if cfg.MaxDocumentChars <= 0 {
		errs = append(errs, FieldError{Field: "compiler.max_document_chars", Message: "must be positive"})
	}
	if cfg.MaxErrorDetailChars <= 0 {
		errs = append(errs, FieldError{Field: "compiler.max_error_detail_chars", Message: "must be positive"})
	}
	if cfg.MaxResponseBytes <= 0 {
		errs = append(errs, FieldError{Field: "compiler.max_response_bytes", Message: "must be positive"})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	validModes := []string{AuthModeOptional, AuthModeRequired, AuthModeDisabled}
	if !slices.Contains(validModes, cfg.Authentication.Mode) {
		errs = append(errs, FieldError{
			Field:   "security.authentication.mode",
			Message: fmt.Sprintf("invalid mode %q (must be one of: %s)", cfg.Authentication.Mode, strings.Join(validModes, ", ")),
		})
	}
	if cfg.Authentication.Mode != AuthModeDisabled {
		if cfg.Authentication.Header == "" {
			errs = append(errs, FieldError{Field: "security.authentication.header", Message: "header is required"})
		}
		if cfg.Authentication.SecretName == "" {
			errs = append(errs, FieldError{Field: "security.authentication.secret_name", Message: "secret name is required"})
		}
	}

	for i, p := range cfg.Secrets.Providers {
		field := fmt.Sprintf("security.secrets.providers[%d]", i)
		switch p.Type {
		case "env":
		case "file":
			if p.Path == "" {
				errs = append(errs, FieldError{Field: field + ".path", Message: "path is required for file provider"})
			}
		default:
			errs = append(errs, FieldError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid provider type %q (must be env or file)", p.Type),
			})
		}
	}

	if cfg.Secrets.Cache.TTL < 0 {
		errs = append(errs, FieldError{Field: "security.secrets.cache.ttl", Message: "TTL must be non-negative"})
	}
	if cfg.Secrets.Cache.MaxSize < 0 {
		errs = append(errs, FieldError{Field: "security.secrets.cache.max_size", Message: "max size must be non-negative"})
	}
	if cfg.Secrets.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Secrets.RefreshSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "security.secrets.refresh_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be one of: %s)", cfg.Logging.Level, strings.Join(validLevels, ", ")),
		})
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		if cfg.Tracing.Sampler != "always" && cfg.Tracing.Sampler != "never" && cfg.Tracing.Sampler != "ratio" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
		}
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "check timeout must be non-negative"})
	}

	return errs
}
