package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/atp-triage-server/internal/domain"
)

const redisKeyPrefix = "triage:verdict:"

// RedisCache is a shared verdict cache over Redis, for deployments running
// several API instances against one audit store.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisCache creates a Redis-backed verdict cache from a connection URL
// (redis://host:port/db). The connection is verified before use.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the cached verdict for an ID, if present.
func (c *RedisCache) Get(ctx context.Context, id string) (*domain.TriageRecord, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("verdict_id", id).Warn("Redis cache read failed")
		return nil, false
	}

	var record domain.TriageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.WithError(err).WithField("verdict_id", id).Warn("Corrupt cached verdict dropped")
		c.client.Del(ctx, redisKeyPrefix+id)
		return nil, false
	}
	return &record, true
}

// Put caches a committed verdict. Failures are logged, never surfaced: the
// cache is an optimization, not a system of record.
func (c *RedisCache) Put(ctx context.Context, record *domain.TriageRecord) {
	if record == nil || record.ID == "" {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		c.logger.WithError(err).WithField("verdict_id", record.ID).Warn("Failed to encode verdict for cache")
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+record.ID, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("verdict_id", record.ID).Warn("Redis cache write failed")
	}
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
