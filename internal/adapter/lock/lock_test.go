package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/lock"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/domain"
)

var (
	_ domain.Locker = (*lock.RedisLocker)(nil)
	_ domain.Locker = (*lock.LocalLocker)(nil)
)

func newRedisLocker(t *testing.T, wait time.Duration) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return lock.NewRedisLocker(rdb, config.LockRetryConfig{
		TTL:          time.Minute,
		Wait:         wait,
		InitialDelay: 2 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
	}), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := newRedisLocker(t, 100*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "candidate:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:candidate:1"))

	unlock()
	assert.False(t, mr.Exists("lock:candidate:1"))

	unlock2, err := l.Lock(context.Background(), "candidate:1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLocker_BusyKeyTimesOut(t *testing.T) {
	l, _ := newRedisLocker(t, 50*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "candidate:2")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "candidate:2")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newRedisLocker(t, 50*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "candidate:3")
	require.NoError(t, err)
	// Simulate expiry and takeover by another holder.
	require.NoError(t, mr.Set("lock:candidate:3", "someone-else"))
	unlock()

	got, err := mr.Get("lock:candidate:3")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	l, _ := newRedisLocker(t, 2*time.Second)

	unlock, err := l.Lock(context.Background(), "candidate:4")
	require.NoError(t, err)
	go func() {
		time.Sleep(20 * time.Millisecond)
		unlock()
	}()
	unlock2, err := l.Lock(context.Background(), "candidate:4")
	require.NoError(t, err)
	unlock2()
}

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	t.Parallel()
	l := lock.NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	t.Parallel()
	l := lock.NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	t.Parallel()
	l := lock.NewLocalLocker()
	a, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	b, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)
	a()
	b()
	a() // second release is a no-op
}
