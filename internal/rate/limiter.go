package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Limiter enforces a per-key budget of Limit hits per Window.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) key(id string) string {
	return l.config.Prefix + ":" + id
}

// Limit returns the per-window budget; zero or less means unlimited.
func (l *Limiter) Limit() int {
	return l.config.Limit
}

// Allow records one hit for id and returns the hits left in the current
// window. Once the budget is spent it returns [ErrRateLimited]. A non-positive
// Limit disables the check.
func (l *Limiter) Allow(ctx context.Context, id string) (int, error) {
	if l.config.Limit <= 0 {
		return 0, nil
	}
	count, err := l.incrementWithTTL(ctx, l.key(id), l.config.Window)
	if err != nil {
		return 0, err
	}
	if count > int64(l.config.Limit) {
		return 0, ErrRateLimited
	}
	return l.config.Limit - int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the TTL.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
