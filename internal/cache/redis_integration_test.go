//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	c := NewRedisCacheFromClient(client, "test:")
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "abc1234")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "abc1234", "https://example.com", 0))
	url, ok, err := c.Get(ctx, "abc1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", url)

	ttl, err := c.client.TTL(ctx, "test:abc1234").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "no TTL set")

	require.NoError(t, c.Set(ctx, "expiring", "https://example.org", 30*time.Second))
	ttl, err = c.client.TTL(ctx, "test:expiring").Result()
	require.NoError(t, err)
	assert.InDelta(t, 30*time.Second, ttl, float64(2*time.Second))

	require.NoError(t, c.Delete(ctx, "abc1234"))
	_, ok, err = c.Get(ctx, "abc1234")
	require.NoError(t, err)
	assert.False(t, ok)
}
