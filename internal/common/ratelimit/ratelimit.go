// Package ratelimit gates outbound search requests per provider key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/database"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
)

// Limiter blocks until a request for key may proceed, or ctx ends.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context, _ string) error { return ctx.Err() }

// LocalLimiter spaces requests per key at least Interval apart within one process.
type LocalLimiter struct {
	Interval time.Duration

	mu   sync.Mutex
	next map[string]time.Time
}

func NewLocal(interval time.Duration) *LocalLimiter {
	return &LocalLimiter{Interval: interval, next: make(map[string]time.Time)}
}

func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	slot := l.next[key]
	if slot.Before(now) {
		slot = now
	}
	l.next[key] = slot.Add(l.Interval)
	l.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RedisLimiter is a fixed-window counter shared by every process using the same Redis.
// Redis errors fail open so a cache outage never blocks research.
type RedisLimiter struct {
	client   *database.RedisClient
	requests int64
	window   time.Duration
	prefix   string
	log      logger.Logger
}

func NewRedis(client *database.RedisClient, requests int, window time.Duration, log logger.Logger) *RedisLimiter {
	if requests <= 0 {
		requests = 1
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RedisLimiter{
		client:   client,
		requests: int64(requests),
		window:   window,
		prefix:   "research:ratelimit:",
		log:      log,
	}
}

func (l *RedisLimiter) Wait(ctx context.Context, key string) error {
	for {
		n, ttl, err := l.client.IncrWindow(ctx, l.prefix+key, l.window)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("rate limiter unavailable, allowing request", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			return nil
		}
		if n <= l.requests {
			return nil
		}

		timer := time.NewTimer(ttl)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
