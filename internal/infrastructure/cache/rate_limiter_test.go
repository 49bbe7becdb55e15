package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryRateLimiter(2, time.Minute)
	defer l.Close()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	d, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "user-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "user-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.ResetIn)

	d, _ = l.Allow(ctx, "user-2")
	assert.True(t, d.Allowed, "keys are independent")

	current = current.Add(time.Minute)
	d, _ = l.Allow(ctx, "user-1")
	assert.True(t, d.Allowed, "new window")
	assert.Equal(t, 1, d.Remaining)
}

func TestInMemoryRateLimiter_CloseIsIdempotent(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Second)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestRedisRateLimiter_WrapsClientErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        unreachableRedis.Addr(),
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, err := NewRedisRateLimiter(client, 10, time.Minute).Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit 10.0.0.1")
}
