package app

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestBuildReadinessChecks_Empty(t *testing.T) {
	assert.Empty(t, BuildReadinessChecks(Deps{}))
}

func TestBuildReadinessChecks(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	checks := BuildReadinessChecks(Deps{
		DB:     pingFunc(func(context.Context) error { return nil }),
		Redis:  rdb,
		Tika:   pingFunc(func(context.Context) error { return errors.New("tika down") }),
		Broker: pingFunc(func(context.Context) error { return nil }),
	})
	require.Len(t, checks, 4)

	got := map[string]error{}
	for _, c := range checks {
		got[c.Name] = c.Fn(context.Background())
	}
	assert.NoError(t, got["db"])
	assert.NoError(t, got["redis"])
	assert.EqualError(t, got["tika"], "tika down")
	assert.NoError(t, got["broker"])

	mr.Close()
	for _, c := range checks {
		if c.Name == "redis" {
			err := c.Fn(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "op=readiness.redis")
		}
	}
}
