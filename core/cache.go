package core

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a key/value store with expiring keys.
type Cache interface {
	// Get returns ErrCacheMiss when the key does not exist (or has expired).
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key; a zero ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr increments the counter stored at key, setting ttl when the key is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
