package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/softrate-ats/internal/adapter/httpserver"
)

// Pinger is satisfied by the pgx pool, the Tika client and the event publisher.
type Pinger interface{ Ping(ctx context.Context) error }

// Deps are the optional backing services of a running server. Nil entries
// are not configured and are left out of readiness.
type Deps struct {
	DB     Pinger
	Redis  redis.UniversalClient
	Tika   Pinger
	Broker Pinger
}

// BuildReadinessChecks returns one check per configured dependency.
func BuildReadinessChecks(d Deps) []httpserver.ReadinessCheck {
	var checks []httpserver.ReadinessCheck
	if d.DB != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "db", Fn: d.DB.Ping})
	}
	if d.Redis != nil {
		rdb := d.Redis
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Fn: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("op=readiness.redis: %w", err)
			}
			return nil
		}})
	}
	if d.Tika != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "tika", Fn: d.Tika.Ping})
	}
	if d.Broker != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "broker", Fn: d.Broker.Ping})
	}
	return checks
}
