package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingChecker(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingChecker(fakePinger{})(ctx))
	assert.EqualError(t, PingChecker(fakePinger{err: errors.New("broker unreachable")})(ctx), "broker unreachable")
	assert.ErrorIs(t, PingChecker(nil)(ctx), ErrNotConfigured)
}

func TestPostgresChecker_NilPool(t *testing.T) {
	assert.ErrorIs(t, PostgresChecker(nil)(context.Background()), ErrNotConfigured)
}

func TestRedisChecker_NilClient(t *testing.T) {
	assert.ErrorIs(t, RedisChecker(nil)(context.Background()), ErrNotConfigured)
}

func TestRedisChecker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	err := RedisChecker(client)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
