package tls

import (
	"crypto/tls"
	"fmt"

	"texrelay-hq/texrelay/pkg/config"
)

// NewServerConfig builds the listener's tls.Config. The certificate is
// served through the returned reloader so a renewed key pair on disk is
// picked up without a restart when cfg.WatchCerts is set. The caller owns
// the reloader and must Close it.
//
// Returns nil, nil, nil when TLS is disabled.
func NewServerConfig(cfg config.TLSConfig) (*tls.Config, *CertificateReloader, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile)
	if err := reloader.Load(); err != nil {
		return nil, nil, err
	}
	if cfg.WatchCerts {
		if err := reloader.Watch(); err != nil {
			return nil, nil, err
		}
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3, validated by config
	tlsConfig := &tls.Config{
		MinVersion:     ParseVersion(cfg.MinVersion),
		GetCertificate: reloader.GetCertificateFunc(),
		NextProtos:     []string{"h2", "http/1.1"},
	}

	return tlsConfig, reloader, nil
}

// ParseVersion maps "1.2" or "1.3" to the crypto/tls constant. Anything
// else yields TLS 1.3.
func ParseVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}
