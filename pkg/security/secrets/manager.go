package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"texrelay-hq/texrelay/pkg/config"
)

// Manager orchestrates multiple secret providers with ordered fallback and
// caches resolved values.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
}

// NewManager creates a new secret manager. Providers are tried in order;
// the first one that supports a secret and returns a value wins.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig) *Manager {
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
	}
}

// NewManagerFromConfig builds the providers described by cfg.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, error) {
	providers := make([]SecretProvider, 0, len(cfg.Providers))
	for i, pc := range cfg.Providers {
		switch pc.Type {
		case "env":
			providers = append(providers, NewEnvProvider(pc.Prefix))
		case "file":
			fp, err := NewFileProvider(pc.Path, pc.Watch)
			if err != nil {
				closeProviders(providers)
				return nil, fmt.Errorf("secret provider %d: %w", i, err)
			}
			providers = append(providers, fp)
		default:
			closeProviders(providers)
			return nil, fmt.Errorf("secret provider %d: unsupported type %q", i, pc.Type)
		}
	}

	return NewManager(providers, CacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.TTL,
		MaxSize: cfg.Cache.MaxSize,
	}), nil
}

// GetSecret retrieves a secret from the cache or the first provider that
// has it. The returned error wraps ErrNotFound when no provider holds it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var lastErr error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}

		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			slog.Debug("secret provider miss",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			continue
		}

		m.cache.Set(name, value)
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}

	return "", fmt.Errorf("%w: %q (no provider supports this secret)", ErrNotFound, name)
}

// Refresh reloads refreshable providers and clears the cache.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []error
	for _, provider := range m.providers {
		refreshable, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := refreshable.Refresh(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", provider.Provider(), err))
		}
	}

	m.cache.Clear()

	if len(errs) > 0 {
		return fmt.Errorf("failed to refresh some providers: %w", errors.Join(errs...))
	}
	return nil
}

// Providers returns the provider names in resolution order.
func (m *Manager) Providers() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Provider()
	}
	return names
}

// Close releases providers that hold resources (file watchers).
func (m *Manager) Close() error {
	return closeProviders(m.providers)
}

func closeProviders(providers []SecretProvider) error {
	var errs []error
	for _, p := range providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// redactSecretName keeps only the ends of a secret name for logging.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}

// String lists the providers in resolution order, for startup logs.
func (m *Manager) String() string {
	return strings.Join(m.Providers(), ",")
}
