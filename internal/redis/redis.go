package redis

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/kalendo/calendar-backend/internal/config"
	"github.com/xlab/closer"
	"go.uber.org/zap"
)

// NewRedisPool builds the shared pool backing the refresh token store and
// the occurrence cache. Occurrence lookups are bursty, so idle connections
// are kept around and checked before reuse.
func NewRedisPool(logger *zap.SugaredLogger) *redis.Pool {
	pool := &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", config.RedisURL())
		},
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", config.RedisURL())
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	closer.Bind(func() {
		if err := pool.Close(); err != nil {
			logger.Errorw("Failed closing redis pool", "err", err)
		}
	})

	return pool
}
