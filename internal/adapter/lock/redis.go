// Package lock provides per-key mutual exclusion for candidate operations.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/observability"
)

var errBusy = errors.New("lock busy")

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker is a domain.Locker shared by every API replica.
type RedisLocker struct {
	client  redis.UniversalClient
	release *redis.Script
	cfg     config.LockRetryConfig
	prefix  string
}

// NewRedisLocker builds a locker on client. Keys are stored under "lock:".
func NewRedisLocker(client redis.UniversalClient, cfg config.LockRetryConfig) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 25 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 500 * time.Millisecond
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 10 * time.Second
	}
	return &RedisLocker{client: client, release: redis.NewScript(releaseScript), cfg: cfg, prefix: "lock:"}
}

// Lock acquires key with SET NX PX, retrying with exponential backoff until
// cfg.Wait elapses or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := ulid.Make().String()

	op := func() error {
		ok, err := l.client.SetNX(ctx, k, token, l.cfg.TTL).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errBusy
		}
		return nil
	}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = l.cfg.InitialDelay
	expo.MaxInterval = l.cfg.MaxDelay
	expo.MaxElapsedTime = l.cfg.Wait
	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		if errors.Is(err, errBusy) {
			return nil, fmt.Errorf("%w: %s is locked by another request", domain.ErrConflict, key)
		}
		return nil, fmt.Errorf("op=lock.acquire: %w", err)
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := l.release.Run(rctx, l.client, []string{k}, token).Err(); err != nil {
			observability.LoggerFromContext(ctx).Warn("lock release failed", slog.String("key", k), slog.Any("error", err))
		}
	}, nil
}
