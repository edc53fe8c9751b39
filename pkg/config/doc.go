// Package config provides configuration management for texrelay.
//
// Configuration is loaded from an optional YAML file, layered over built-in
// defaults, and finally overridden by environment variables.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// Passing an empty path skips the file entirely, which is how the server is
// usually run in containers:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TEXRELAY_SECTION_FIELD:
//
//   - TEXRELAY_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - TEXRELAY_COMPILER_URL overrides compiler.url
//   - TEXRELAY_SECURITY_AUTHENTICATION_MODE overrides security.authentication.mode
//   - TEXRELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The expected API key itself is never part of the configuration file. It
// is resolved at request time through the secret providers configured under
// security.secrets (by default the LATEX_API_KEY environment variable).
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
package config
