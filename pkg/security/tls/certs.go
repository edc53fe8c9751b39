package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// ExpiryWarningWindow is how close to NotAfter a certificate must be before
// a load logs a warning.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// ValidateCertificate checks that the leaf of cert is currently valid.
func ValidateCertificate(cert *tls.Certificate) error {
	leaf, err := leafOf(cert)
	if err != nil {
		return err
	}
	return ValidateX509Certificate(leaf, time.Now())
}

// ValidateX509Certificate checks cert's validity period against now.
func ValidateX509Certificate(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// CheckCertificateExpiration returns the time left until cert expires and
// a warning when that is inside ExpiryWarningWindow.
func CheckCertificateExpiration(cert *x509.Certificate, now time.Time) (time.Duration, string) {
	remaining := cert.NotAfter.Sub(now)
	if remaining < ExpiryWarningWindow {
		return remaining, fmt.Sprintf("certificate expires in %d days (on %s)",
			int(remaining.Hours()/24), cert.NotAfter.Format("2006-01-02"))
	}
	return remaining, ""
}

func leafOf(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return leaf, nil
}
