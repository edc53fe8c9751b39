package tls

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertificateReloader holds the current key pair and swaps it when the
// files on disk change. Renewal tools usually replace both files in quick
// succession, so reloads are debounced.
type CertificateReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewCertificateReloader creates a reloader for the given key pair.
func NewCertificateReloader(certFile, keyFile string) *CertificateReloader {
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: 250 * time.Millisecond,
	}
}

// Load reads and validates the key pair. On failure the previous
// certificate stays in place.
func (r *CertificateReloader) Load() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logCertificateInfo(&cert)
	return nil
}

// Watch starts reloading on file changes. The parent directories are
// watched rather than the files, so atomic replace-by-rename is seen.
func (r *CertificateReloader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	r.watcher = watcher
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.watchLoop()

	return nil
}

func (r *CertificateReloader) watchLoop() {
	defer r.wg.Done()

	certName := filepath.Clean(r.certFile)
	keyName := filepath.Clean(r.keyFile)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != certName && name != keyName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if err := r.Load(); err != nil {
				slog.Error("failed to reload certificate, keeping previous",
					"cert_file", r.certFile,
					"error", err,
				)
			} else {
				slog.Info("certificate reloaded", "cert_file", r.certFile)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("certificate watcher error", "error", err)

		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// GetCertificate returns the current certificate.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc returns a function for tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert := r.GetCertificate()
		if cert == nil {
			return nil, fmt.Errorf("no certificate loaded")
		}
		return cert, nil
	}
}

// Close stops watching. It is safe to call without Watch.
func (r *CertificateReloader) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	r.watcher = nil
	return err
}

func (r *CertificateReloader) logCertificateInfo(cert *tls.Certificate) {
	leaf, err := leafOf(cert)
	if err != nil {
		return
	}

	remaining, warning := CheckCertificateExpiration(leaf, time.Now())
	if warning != "" {
		slog.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", int(remaining.Hours()/24),
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
		return
	}
	slog.Info("certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", int(remaining.Hours()/24),
	)
}
