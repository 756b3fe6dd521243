package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.nowFunc = func() time.Time { return now }

	_, err := c.Get(ctx, "missing")
	assert.Equal(t, core.ErrCacheMiss, err)

	require.NoError(t, c.Set(ctx, "forever", "a", 0))
	require.NoError(t, c.Set(ctx, "short", "b", time.Minute))

	val, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "b", val)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "short")
	assert.Equal(t, core.ErrCacheMiss, err)
	val, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "a", val)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, err = c.Get(ctx, "forever")
	assert.Equal(t, core.ErrCacheMiss, err)
}

func TestMemoryCache_Incr(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.nowFunc = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "counter", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// the ttl is set when the counter is created, not on every increment
	now = now.Add(time.Hour)
	n, err := c.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.Set(ctx, "text", "abc", 0))
	_, err = c.Incr(ctx, "text", 0)
	assert.Error(t, err)
}
