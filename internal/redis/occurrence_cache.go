package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/kalendo/calendar-backend/internal/config"
	"github.com/kalendo/calendar-backend/internal/model"
	"go.uber.org/zap"
)

// OccurrenceCache stores materialized occurrence windows. Keys carry the
// event version, so bumping the version on write orphans stale entries
// instead of requiring explicit invalidation.
type OccurrenceCache struct {
	pool   *redis.Pool
	logger *zap.SugaredLogger
}

func NewOccurrenceCache(pool *redis.Pool, logger *zap.SugaredLogger) *OccurrenceCache {
	return &OccurrenceCache{
		pool:   pool,
		logger: logger,
	}
}

func occurrenceKey(eventID, version int64, from, to time.Time) string {
	return fmt.Sprintf("occurrences:%d:%d:%d:%d", eventID, version, from.Unix(), to.Unix())
}

func (c *OccurrenceCache) Get(ctx context.Context, eventID, version int64, from, to time.Time) ([]model.Occurrence, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	defer c.close(conn)

	data, err := redis.Bytes(conn.Do("GET", occurrenceKey(eventID, version, from, to)))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, model.ErrNoRecord
		}
		return nil, fmt.Errorf("GET: %w", err)
	}

	var occurrences []model.Occurrence
	if err := json.Unmarshal(data, &occurrences); err != nil {
		return nil, fmt.Errorf("unmarshal occurrences: %w", err)
	}

	return occurrences, nil
}

func (c *OccurrenceCache) Set(ctx context.Context, eventID, version int64, from, to time.Time, occurrences []model.Occurrence) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer c.close(conn)

	data, err := json.Marshal(occurrences)
	if err != nil {
		return fmt.Errorf("marshal occurrences: %w", err)
	}

	if _, err := conn.Do("SET", occurrenceKey(eventID, version, from, to), data,
		"EX", int(config.OccurrenceCacheTTL().Seconds())); err != nil {
		return fmt.Errorf("SET: %w", err)
	}

	return nil
}

func (c *OccurrenceCache) close(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		c.logger.Errorw("Failed closing redis connection", "err", err)
	}
}
