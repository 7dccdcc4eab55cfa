package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is reported by checkers built around a nil dependency.
var ErrNotConfigured = errors.New("not configured")

// Pinger is anything with a context-aware Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts a Pinger.
func PingChecker(p Pinger) Checker {
	return func(ctx context.Context) error {
		if p == nil {
			return ErrNotConfigured
		}
		return p.Ping(ctx)
	}
}

// PostgresChecker pings the charge record pool.
func PostgresChecker(pool *pgxpool.Pool) Checker {
	return func(ctx context.Context) error {
		if pool == nil {
			return ErrNotConfigured
		}
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}
		return nil
	}
}

// RedisChecker pings the idempotency key store.
func RedisChecker(client redis.Cmdable) Checker {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrNotConfigured
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}
}
