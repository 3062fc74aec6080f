package cache

import (
	"context"
	"time"

	"WaveSplit/logger"

	"github.com/go-redis/redis/v8"
)

// RedisSegmentCache keeps fetched segment audio bytes so replayed previews
// skip the backend round trip. A cache miss returns nil data without an
// error; preview fetching always works without Redis.
type RedisSegmentCache struct {
	client *redis.Client
}

// NewRedisSegmentCache wraps an established Redis client.
func NewRedisSegmentCache(client *redis.Client) *RedisSegmentCache {
	return &RedisSegmentCache{client: client}
}

// Get returns the cached bytes for key, or nil on a miss. Transient Redis
// errors are retried once and then treated as a miss.
func (c *RedisSegmentCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	retryDelay := 100 * time.Millisecond
	for attempt := 0; attempt < 2; attempt++ {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			if attempt == 0 {
				time.Sleep(retryDelay)
				continue
			}
			logger.Warn("segment cache read failed, treating as miss",
				logger.String("key", key),
				logger.ErrorField(err))
			return nil, nil
		}
		logger.Debug("segment cache hit",
			logger.String("key", key),
			logger.Int("dataSize", len(data)))
		return data, nil
	}
	return nil, nil
}

// Set stores the bytes for key with the given expiration.
func (c *RedisSegmentCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Error("segment cache write failed",
			logger.String("key", key),
			logger.Int("dataSize", len(data)),
			logger.ErrorField(err))
		return err
	}

	logger.Debug("segment cache set",
		logger.String("key", key),
		logger.Int("dataSize", len(data)),
		logger.Duration("expiration", ttl))
	return nil
}
