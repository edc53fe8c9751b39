package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
)

// KeyChecker validates presented API keys against the expected secret.
type KeyChecker struct {
	mode       Mode
	secretName string
	source     SecretSource
}

// NewKeyChecker creates a checker for the given mode. source may be nil only
// in disabled mode.
func NewKeyChecker(cfg Config, source SecretSource) (*KeyChecker, error) {
	switch cfg.Mode {
	case ModeOptional, ModeRequired:
		if source == nil {
			return nil, fmt.Errorf("auth mode %q requires a secret source", cfg.Mode)
		}
		if cfg.SecretName == "" {
			return nil, fmt.Errorf("auth mode %q requires a secret name", cfg.Mode)
		}
	case ModeDisabled:
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	return &KeyChecker{
		mode:       cfg.Mode,
		secretName: cfg.SecretName,
		source:     source,
	}, nil
}

// Mode returns the configured policy.
func (c *KeyChecker) Mode() Mode {
	return c.mode
}

// Check applies the policy to the presented key. An empty presented value
// means the header was absent.
func (c *KeyChecker) Check(ctx context.Context, presented string) error {
	if c.mode == ModeDisabled {
		return nil
	}

	if presented == "" {
		if c.mode == ModeRequired {
			return ErrMissingAPIKey
		}
		return nil
	}

	expected, err := c.source.GetSecret(ctx, c.secretName)
	if err != nil {
		slog.Warn("expected API key unavailable, rejecting presented key",
			"secret", c.secretName,
			"error", err,
		)
		return fmt.Errorf("%w: expected key unavailable", ErrInvalidAPIKey)
	}
	if expected == "" {
		return fmt.Errorf("%w: expected key is empty", ErrInvalidAPIKey)
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return ErrInvalidAPIKey
	}

	return nil
}

// Ready reports whether the expected key can be resolved. Optional mode
// still works without it, so only required mode treats a miss as an error.
func (c *KeyChecker) Ready(ctx context.Context) error {
	if c.mode != ModeRequired {
		return nil
	}
	if _, err := c.source.GetSecret(ctx, c.secretName); err != nil {
		return fmt.Errorf("expected API key %q unavailable: %w", c.secretName, err)
	}
	return nil
}
