package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestAdmitUnderLimit(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	l := New(client, 5, time.Minute, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d := l.Admit(ctx, "10.0.0.1", "/v1/moderate")
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
	}
}

func TestAdmitOverLimitDeniesWithRetryAfter(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	l := New(client, 3, time.Minute, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, l.Admit(ctx, "10.0.0.1", "/v1/moderate").Allowed)
	}

	d := l.Admit(ctx, "10.0.0.1", "/v1/moderate")
	assert.False(t, d.Allowed)
	assert.GreaterOrEqual(t, d.RetryAfter, time.Second)
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestAdmitKeysAreIndependent(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	l := New(client, 1, time.Minute, 10*time.Second)
	ctx := context.Background()

	require.True(t, l.Admit(ctx, "10.0.0.1", "/v1/moderate").Allowed)
	assert.False(t, l.Admit(ctx, "10.0.0.1", "/v1/moderate").Allowed)

	// A different client and a different endpoint each get their own
	// window.
	assert.True(t, l.Admit(ctx, "10.0.0.2", "/v1/moderate").Allowed)
	assert.True(t, l.Admit(ctx, "10.0.0.1", "/health").Allowed)
}

func TestAdmitKeyFormat(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	l := New(client, 10, time.Minute, 10*time.Second)
	require.True(t, l.Admit(context.Background(), "10.0.0.1", "/v1/moderate").Allowed)

	key := fmt.Sprintf("rate_limit:%s:%s", "10.0.0.1", "/v1/moderate")
	assert.True(t, mr.Exists(key), "expected sorted set at %q", key)

	ttl := mr.TTL(key)
	assert.Greater(t, ttl, time.Minute, "expiry must outlive the window")
}

func TestAdmitFailsOpenOnRedisError(t *testing.T) {
	mr, client := setupTestRedis(t)

	l := New(client, 1, time.Minute, 10*time.Second)
	ctx := context.Background()

	require.True(t, l.Admit(ctx, "10.0.0.1", "/v1/moderate").Allowed)

	// With the store gone the limiter must keep admitting traffic.
	mr.Close()
	d := l.Admit(ctx, "10.0.0.1", "/v1/moderate")
	assert.True(t, d.Allowed)
}
