package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

// Readiness reports whether a dependency is usable. auth.KeyChecker
// satisfies it.
type Readiness interface {
	Ready(ctx context.Context) error
}

// ReadinessCheck adapts a Readiness to a CheckFunc.
func ReadinessCheck(r Readiness) CheckFunc {
	return r.Ready
}

// DialCheck returns a check that opens and closes a TCP connection to the
// host of rawURL. It proves the compiler is reachable without spending a
// compile on it.
func DialCheck(rawURL string) (CheckFunc, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL %q has no host", rawURL)
	}

	addr := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	var dialer net.Dialer
	return func(ctx context.Context) error {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("compiler unreachable at %s: %w", addr, err)
		}
		return conn.Close()
	}, nil
}
