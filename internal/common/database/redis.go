// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client shared by the search rate limiter.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedis creates a new Redis client; it does not dial until first use.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// IncrWindow increments key and, on the first hit, sets its expiry to window.
// It returns the post-increment count and the remaining TTL.
func (c *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if n == 1 {
		if err := c.Client.PExpire(ctx, key, window).Err(); err != nil {
			return n, 0, fmt.Errorf("redis pexpire %s: %w", key, err)
		}
		return n, window, nil
	}
	ttl, err := c.Client.PTTL(ctx, key).Result()
	if err != nil {
		return n, 0, fmt.Errorf("redis pttl %s: %w", key, err)
	}
	if ttl < 0 {
		// key lost its expiry; restore it so the window cannot stick
		_ = c.Client.PExpire(ctx, key, window).Err()
		ttl = window
	}
	return n, ttl, nil
}
