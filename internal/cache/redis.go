package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps estimates in Redis so several server instances share
// them. Expiry is left to Redis.
type RedisCache struct {
	client    *redis.Client
	duration  time.Duration
	hitCount  atomic.Int64
	missCount atomic.Int64
}

// NewRedisCache connects to Redis and checks the connection
func NewRedisCache(addr, password string, db int, duration time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis cache: %w", err)
	}

	return &RedisCache{client: client, duration: duration}, nil
}

// Get retrieves an entry from cache
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.missCount.Add(1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.missCount.Add(1)
		return nil, ErrCacheMiss
	}

	c.hitCount.Add(1)
	entry.AccessedAt = time.Now()
	return &entry, nil
}

// Set stores an entry in cache
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	now := time.Now()
	stored := *entry
	stored.Key = key
	stored.CreatedAt = now
	stored.ExpiresAt = now.Add(c.duration)
	stored.AccessedAt = now

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.duration).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Exists checks if an entry exists in cache
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes all estimate entries
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache entries: %w", err)
	}

	c.hitCount.Store(0)
	c.missCount.Store(0)
	return nil
}

// GetStats returns cache statistics
func (c *RedisCache) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Type:      "redis",
		HitCount:  c.hitCount.Load(),
		MissCount: c.missCount.Load(),
	}
	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRate = float64(stats.HitCount) / float64(total)
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		stats.TotalEntries++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning cache entries: %w", err)
	}

	return stats, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
