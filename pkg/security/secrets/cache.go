package secrets

import (
	"sync"
	"time"
)

// CacheConfig configures the secret cache behavior.
type CacheConfig struct {
	Enabled bool          // Enable caching
	TTL     time.Duration // Time to live for cached secrets
	MaxSize int           // Maximum number of secrets to cache
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache provides thread-safe caching of secrets with TTL and size limits.
// When full, the entry closest to expiry is evicted.
type Cache struct {
	config  CacheConfig
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewCache creates a new secret cache with the given configuration.
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		config:  config,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	if !c.config.Enabled {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return "", false
	}

	return entry.value, true
}

// Set stores a value with the configured TTL.
func (c *Cache) Set(key, value string) {
	if !c.config.Enabled || c.config.MaxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey = k
				oldest = e.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = &cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.config.TTL),
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
