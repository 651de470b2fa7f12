package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, buckets map[string]BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, buckets), mr
}

func TestAllow_NilLimiterFailsOpen(t *testing.T) {
	var l *RedisLuaLimiter
	ok, wait, err := l.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)
	assert.Nil(t, NewRedisLuaLimiter(nil, nil))
}

func TestAllow_UnknownBucketIsUnlimited(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	for i := 0; i < 5; i++ {
		ok, _, err := l.Allow(context.Background(), "llm:none", 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestAllow_ExhaustsAndRefills(t *testing.T) {
	l, mr := newTestLimiter(t, map[string]BucketConfig{"llm:openrouter": NewBucketConfigFromPerMinute(2)})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "llm:openrouter", 1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, wait, err := l.Allow(ctx, "llm:openrouter", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 30*time.Second, wait, float64(time.Second))
	assert.True(t, mr.Exists("rate:llm:openrouter"))

	now = now.Add(31 * time.Second)
	ok, _, err = l.Allow(ctx, "llm:openrouter", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t, map[string]BucketConfig{"k": NewBucketConfigFromPerMinute(1)})
	mr.Close()
	ok, _, err := l.Allow(context.Background(), "k", 1)
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestSetBucketConfig(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	l.SetBucketConfig("k", BucketConfig{Capacity: 1, RefillRate: 0.001})
	ctx := context.Background()
	ok, _, err := l.Allow(ctx, "k", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _, err = l.Allow(ctx, "k", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
