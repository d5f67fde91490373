package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/kalendo/calendar-backend/internal/model"
	"go.uber.org/zap"
)

const gcalTokenPrefix = "gcal_token:"

// GcalTokenRepository keeps per-user Google OAuth tokens serialized by the
// gcal package.
type GcalTokenRepository struct {
	pool   *redis.Pool
	logger *zap.SugaredLogger
}

func NewGcalTokenRepository(pool *redis.Pool, logger *zap.SugaredLogger) *GcalTokenRepository {
	return &GcalTokenRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *GcalTokenRepository) Add(ctx context.Context, userID int64, token []byte) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer r.close(conn)

	if _, err := conn.Do("SET", fmt.Sprintf("%s%d", gcalTokenPrefix, userID), token); err != nil {
		return fmt.Errorf("SET: %w", err)
	}

	return nil
}

func (r *GcalTokenRepository) Get(ctx context.Context, userID int64) ([]byte, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer r.close(conn)

	token, err := redis.Bytes(conn.Do("GET", fmt.Sprintf("%s%d", gcalTokenPrefix, userID)))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, model.ErrNoRecord
		}
		return nil, fmt.Errorf("GET: %w", err)
	}

	return token, nil
}

func (r *GcalTokenRepository) Delete(ctx context.Context, userID int64) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer r.close(conn)

	if _, err := conn.Do("DEL", fmt.Sprintf("%s%d", gcalTokenPrefix, userID)); err != nil {
		return fmt.Errorf("DEL: %w", err)
	}

	return nil
}

func (r *GcalTokenRepository) close(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		r.logger.Errorw("Failed closing redis connection", "err", err)
	}
}
