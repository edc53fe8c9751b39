// Package secrets resolves the expected API key (and any other named
// secret) from pluggable backends.
package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned (wrapped) when no provider holds the secret.
var ErrNotFound = errors.New("secret not found")

// SecretProvider retrieves secrets from a backend.
//
// Implementations read from environment variables or from a directory of
// mounted secret files. The Manager chains providers with ordered fallback.
type SecretProvider interface {
	// GetSecret retrieves a secret by name.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name ("env", "file").
	Provider() string

	// Supports reports whether this provider may hold the named secret.
	Supports(name string) bool
}

// RefreshableProvider can drop its cached values so the next read goes to
// the backend again. File providers implement it to pick up rotated keys.
type RefreshableProvider interface {
	SecretProvider

	// Refresh discards any provider-local cache.
	Refresh(ctx context.Context) error
}
