package cachesvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// RedisCache is a core.Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

var _ core.Cache = (*RedisCache)(nil)

// NewRedisCache connects to the configured Redis server & pings it.
func NewRedisCache(ctx context.Context, conf core.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.Addr)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", core.ErrCacheMiss
	}
	return val, errors.Wrap(err, "redis get")
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrap(c.client.Set(ctx, key, value, ttl).Err(), "redis set")
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "redis del")
}

// Incr increments the counter & sets its ttl when the counter is new.
func (c *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis incr")
	}
	if n == 1 && ttl > 0 {
		if err = c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, errors.Wrap(err, "redis expire")
		}
	}
	return n, nil
}

// New returns a Redis cache when an address is configured, a memory cache otherwise.
func New(ctx context.Context, conf core.RedisConfig) (core.Cache, error) {
	if conf.Addr == "" {
		return NewMemoryCache(), nil
	}
	return NewRedisCache(ctx, conf)
}
