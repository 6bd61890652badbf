package evaluator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the decision cache consumed by the engine. Implementations need
// nothing beyond get and set-with-expiry; no transactions, no multi-key
// atomicity. The engine treats every cache failure as advisory.
type Cache interface {
	// Get returns the cached payload, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload with an expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetValue stores a plain string without expiry. Used for side keys
	// such as the mirrored rules version.
	SetValue(ctx context.Context, key, value string) error
}

// ErrCacheMiss indicates the key is not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// RedisCache implements Cache over a Redis client.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a cache over an established Redis client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return payload, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) SetValue(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, 0).Err()
}

// MemoryCache is a mutex-guarded in-process Cache for tests and
// single-process setups.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return entry.payload, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{payload: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) SetValue(ctx context.Context, key, value string) error {
	return c.Set(ctx, key, []byte(value), 0)
}

// Len returns the number of stored entries, expired or not. Test helper.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)
