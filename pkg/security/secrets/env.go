package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables.
//
// Secret names are upper-cased, hyphens become underscores, and Prefix is
// prepended. With an empty prefix "latex-api-key" is read from LATEX_API_KEY,
// which is the variable hosting platforms conventionally inject.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates a new environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret retrieves a secret from an environment variable. An empty
// variable counts as unset.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)

	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w in environment: %s (env var: %s)", ErrNotFound, name, envVar)
	}

	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports always returns true so the environment can act as a fallback.
func (p *EnvProvider) Supports(name string) bool {
	return true
}

// EnvVar returns the environment variable a secret name maps to.
//
// Example: "latex-api-key" -> "TEXRELAY_SECRET_LATEX_API_KEY" (prefix "TEXRELAY_SECRET_")
func (p *EnvProvider) EnvVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
