package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileProvider loads secrets from individual files in a directory, the
// layout produced by Kubernetes secret volumes and Docker secrets. Each
// file must be mode 0600 or 0400.
//
// With Watch enabled the directory is monitored and the provider's cache is
// dropped whenever a file is written, created, or renamed, so a rotated key
// is accepted on the next request.
type FileProvider struct {
	BasePath string
	Watch    bool

	mu      sync.RWMutex
	cache   map[string]string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
}

// NewFileProvider creates a new file-based secret provider.
func NewFileProvider(basePath string, watch bool) (*FileProvider, error) {
	p := &FileProvider{
		BasePath: basePath,
		Watch:    watch,
		cache:    make(map[string]string),
		stopCh:   make(chan struct{}),
	}

	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := watcher.Add(basePath); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory: %w", err)
		}
		p.watcher = watcher
		go p.watchLoop()
	}

	slog.Info("file secret provider started", "path", basePath, "watch", watch)

	return p, nil
}

// GetSecret reads <BasePath>/<name>, trimming surrounding whitespace.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	if value, ok := p.cache[name]; ok {
		p.mu.RUnlock()
		return value, nil
	}
	p.mu.RUnlock()

	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no secret file %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode != 0600 && mode != 0400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath by resolve
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	value := strings.TrimSpace(string(data))

	p.mu.Lock()
	p.cache[name] = value
	p.mu.Unlock()

	return value, nil
}

// resolve joins name onto BasePath and rejects anything escaping it.
func (p *FileProvider) resolve(name string) (string, error) {
	absBase, err := filepath.Abs(p.BasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(p.BasePath, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret name %q: directory traversal detected", name)
	}
	return absPath, nil
}

// Provider returns the provider name.
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports reports whether a regular file with that name exists.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Refresh clears the provider cache.
func (p *FileProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]string)
	return nil
}

// Close stops the file watcher.
func (p *FileProvider) Close() error {
	var err error
	p.once.Do(func() {
		if p.watcher != nil {
			close(p.stopCh)
			err = p.watcher.Close()
		}
	})
	return err
}

func (p *FileProvider) watchLoop() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			slog.Debug("secret file changed, dropping cache",
				"file", filepath.Base(event.Name),
				"op", event.Op.String(),
			)
			_ = p.Refresh(context.Background())

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("secret file watcher error", "error", err)

		case <-p.stopCh:
			return
		}
	}
}
