package auth

import (
	"context"
	"errors"
)

// Mode is the key policy applied by a KeyChecker.
type Mode string

// Supported modes.
const (
	ModeOptional Mode = "optional"
	ModeRequired Mode = "required"
	ModeDisabled Mode = "disabled"
)

var (
	// ErrInvalidAPIKey is returned when a presented key does not match.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrMissingAPIKey is returned in required mode when no key is presented.
	ErrMissingAPIKey = errors.New("missing API key")
)

// SecretSource resolves the expected key by name.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Config configures a KeyChecker.
type Config struct {
	Mode       Mode
	SecretName string
}

// IsAuthError reports whether err is one of the authentication failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrMissingAPIKey)
}
