package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// verdictKeyPrefix is the prefix for verdict keys in Redis.
	verdictKeyPrefix = "verdict:"

	verdictAllowed = "1"
	verdictDenied  = "0"
)

// RedisVerdictCache implements VerdictCache using Redis as the backing store.
type RedisVerdictCache struct {
	client *redis.Client
}

// NewRedisVerdictCache creates a new Redis-backed verdict cache.
func NewRedisVerdictCache(client *redis.Client) *RedisVerdictCache {
	return &RedisVerdictCache{
		client: client,
	}
}

// Get retrieves a verdict from Redis.
// Returns nil, nil on cache miss.
func (c *RedisVerdictCache) Get(ctx context.Context, videoID string) (*Verdict, error) {
	value, err := c.client.Get(ctx, c.buildKey(videoID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	switch value {
	case verdictAllowed:
		return &Verdict{Allowed: true}, nil
	case verdictDenied:
		return &Verdict{Allowed: false}, nil
	default:
		return nil, fmt.Errorf("unexpected verdict value %q", value)
	}
}

// Set stores a verdict in Redis with the specified TTL.
func (c *RedisVerdictCache) Set(ctx context.Context, videoID string, allowed bool, ttl time.Duration) error {
	value := verdictDenied
	if allowed {
		value = verdictAllowed
	}
	if err := c.client.Set(ctx, c.buildKey(videoID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a verdict from Redis.
func (c *RedisVerdictCache) Delete(ctx context.Context, videoID string) error {
	if err := c.client.Del(ctx, c.buildKey(videoID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// buildKey constructs the Redis key for a video's verdict.
func (c *RedisVerdictCache) buildKey(videoID string) string {
	return verdictKeyPrefix + videoID
}
