// Package ratelimiter provides a Redis token bucket shared by every process
// that calls the same AI provider.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a call charged to key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig sizes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// NewBucketConfigFromPerMinute builds a bucket allowing perMinute calls per minute.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// RedisLuaLimiter keeps buckets in Redis hashes and updates them atomically
// with a Lua script. Keys without a configured bucket are never limited.
type RedisLuaLimiter struct {
	redis   redis.UniversalClient
	buckets map[string]BucketConfig
	script  *redis.Script
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRedisLuaLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLuaLimiter(rdb redis.UniversalClient, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	cp := make(map[string]BucketConfig, len(buckets))
	for k, v := range buckets {
		cp[k] = v
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		buckets: cp,
		script:  redis.NewScript(luaTokenBucketScript),
		now:     time.Now,
	}
}

// Lua numbers become integers on the way back to Redis, so fractional
// values are returned as strings.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl_ms)

return { allowed, tostring(tokens), tostring(retry_after) }
`

// Allow charges cost tokens to key. Redis failures fail open and are returned
// so the caller can log them.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	// Idle buckets expire once they would be full again.
	ttl := int64(math.Ceil(float64(cfg.Capacity)/cfg.RefillRate*1000)) + 1000

	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost, ttl).Slice()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimiter.allow: %w", err)
	}
	if len(res) < 3 {
		return true, 0, fmt.Errorf("op=ratelimiter.allow: unexpected script result %v", res)
	}
	allowed, _ := res[0].(int64)
	retryAfterSec := parseFloat(res[2])
	return allowed == 1, time.Duration(retryAfterSec * float64(time.Second)), nil
}

// SetBucketConfig updates or creates the bucket for key. It is safe for
// concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}

func parseFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(t)
	default:
		return 0
	}
}
