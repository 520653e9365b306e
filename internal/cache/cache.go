package cache

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pep299/article-bias-analyzer/internal/model"
)

// Cache interface defines cache operations
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// CacheEntry represents a cached estimate
type CacheEntry struct {
	Key         string        `json:"key"`
	Payload     model.Payload `json:"payload"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	AccessedAt  time.Time     `json:"accessed_at"`
	AccessCount int           `json:"access_count"`
}

// Stats represents cache statistics
type Stats struct {
	Type           string        `json:"type"`
	TotalEntries   int           `json:"total_entries"`
	HitCount       int64         `json:"hit_count"`
	MissCount      int64         `json:"miss_count"`
	HitRate        float64       `json:"hit_rate"`
	MemoryUsage    int64         `json:"memory_usage_bytes"`
	OldestEntry    time.Time     `json:"oldest_entry"`
	AverageAge     time.Duration `json:"average_age"`
	ExpiredEntries int           `json:"expired_entries"`
}

// MemoryCache implements in-memory cache
type MemoryCache struct {
	entries   map[string]*CacheEntry
	mutex     sync.RWMutex
	duration  time.Duration
	hitCount  int64
	missCount int64
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(duration time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:  make(map[string]*CacheEntry),
		duration: duration,
		stop:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup(10 * time.Minute)

	return cache
}

// Get retrieves an entry from cache
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.missCount++
		return nil, ErrCacheMiss
	}

	// Check if expired
	if time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		c.missCount++
		return nil, ErrCacheMiss
	}

	entry.AccessedAt = time.Now()
	entry.AccessCount++
	c.hitCount++

	copied := *entry
	return &copied, nil
}

// Set stores an entry in cache
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	stored := *entry
	stored.Key = key
	stored.CreatedAt = now
	stored.ExpiresAt = now.Add(c.duration)
	stored.AccessedAt = now
	stored.AccessCount = 0

	c.entries[key] = &stored
	return nil
}

// Delete removes an entry from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
	return nil
}

// Exists checks if an entry exists in cache
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return false, nil
	}

	return !time.Now().After(entry.ExpiresAt), nil
}

// Clear removes all entries from cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.hitCount = 0
	c.missCount = 0
	return nil
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats(ctx context.Context) (*Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := &Stats{
		Type:         "memory",
		TotalEntries: len(c.entries),
		HitCount:     c.hitCount,
		MissCount:    c.missCount,
	}

	if c.hitCount+c.missCount > 0 {
		stats.HitRate = float64(c.hitCount) / float64(c.hitCount+c.missCount)
	}

	var totalAge time.Duration
	now := time.Now()

	for _, entry := range c.entries {
		stats.MemoryUsage += estimateMemoryUsage(entry)

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		totalAge += now.Sub(entry.CreatedAt)

		if now.After(entry.ExpiresAt) {
			stats.ExpiredEntries++
		}
	}

	if len(c.entries) > 0 {
		stats.AverageAge = totalAge / time.Duration(len(c.entries))
	}

	return stats, nil
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanup removes expired entries periodically
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stop:
			return
		}
	}
}

// cleanupExpired removes expired entries
func (c *MemoryCache) cleanupExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// estimateMemoryUsage gives a rough size of an entry in bytes
func estimateMemoryUsage(entry *CacheEntry) int64 {
	p := entry.Payload
	size := len(entry.Key) + len(p.ID) + len(p.Raw) + len(p.Title) + len(p.URL) + len(p.Model)
	// fixed-size fields: two ints, a bool pair, four timestamps and the counter
	return int64(size + 2*8 + 2 + 4*24 + 8)
}

// Options configures a cache manager
type Options struct {
	Type          string
	Duration      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Manager handles cache operations with convenience methods. A nil
// Manager is a disabled cache.
type Manager struct {
	cache Cache
}

// NewManager creates a new cache manager
func NewManager(opts Options) (*Manager, error) {
	var cache Cache

	switch opts.Type {
	case "", "memory":
		cache = NewMemoryCache(opts.Duration)
	case "redis":
		redisCache, err := NewRedisCache(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.Duration)
		if err != nil {
			return nil, err
		}
		cache = redisCache
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", opts.Type)
	}

	return &Manager{cache: cache}, nil
}

// GetEstimate retrieves a cached payload by key
func (m *Manager) GetEstimate(ctx context.Context, key string) (*model.Payload, error) {
	if m == nil || key == "" {
		return nil, ErrCacheMiss
	}

	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	payload := entry.Payload
	payload.Cached = true
	return &payload, nil
}

// SetEstimate caches the payload under key
func (m *Manager) SetEstimate(ctx context.Context, key string, payload model.Payload) error {
	if m == nil || key == "" {
		return nil
	}

	payload.Cached = false
	return m.cache.Set(ctx, key, &CacheEntry{Payload: payload})
}

// Invalidate drops the estimate stored under key and reports whether
// there was one
func (m *Manager) Invalidate(ctx context.Context, key string) (bool, error) {
	if m == nil || key == "" {
		return false, nil
	}

	exists, err := m.cache.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if err := m.cache.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// GetStats returns cache statistics
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	if m == nil {
		return &Stats{Type: "disabled"}, nil
	}
	return m.cache.GetStats(ctx)
}

// Clear clears all cached entries
func (m *Manager) Clear(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.cache.Clear(ctx)
}

// Close releases the underlying cache
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.cache.Close()
}

// GenerateKey generates a cache key for an article fetched from a URL
func GenerateKey(articleURL string) string {
	// Create MD5 hash for consistent key length
	hash := md5.Sum([]byte(normalizeURL(articleURL)))
	return fmt.Sprintf("%s%x", keyPrefix, hash)
}

// GenerateArticleKey generates a cache key for an article supplied
// directly. Title and text are part of the key since callers may send
// different content under the same URL.
func GenerateArticleKey(article model.Article) string {
	h := md5.New()
	for _, part := range []string{normalizeURL(article.URL), article.Title, article.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%sarticle:%x", keyPrefix, h.Sum(nil))
}

func normalizeURL(articleURL string) string {
	return strings.TrimRight(strings.TrimSpace(articleURL), "/")
}

const keyPrefix = "estimate:"

// Common cache errors
var (
	ErrCacheMiss = errors.New("cache miss")
)
