package cachesvc

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

type memoryItem struct {
	value     string
	expiresAt time.Time // zero: never
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// MemoryCache is an in-process core.Cache for tests & single node deployments.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	nowFunc func() time.Time
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), nowFunc: time.Now}
}

func (c *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.nowFunc().Add(ttl)
}

// get must be called with the lock held.
func (c *MemoryCache) get(key string) (memoryItem, bool) {
	it, ok := c.items[key]
	if ok && it.expired(c.nowFunc()) {
		delete(c.items, key)
		return memoryItem{}, false
	}
	return it, ok
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.get(key)
	if !ok {
		return "", core.ErrCacheMiss
	}
	return it.value, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryItem{value: value, expiresAt: c.expiry(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func (c *MemoryCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.get(key)
	if !ok {
		c.items[key] = memoryItem{value: "1", expiresAt: c.expiry(ttl)}
		return 1, nil
	}
	n, err := strconv.ParseInt(it.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	it.value = strconv.FormatInt(n, 10)
	c.items[key] = it
	return n, nil
}
