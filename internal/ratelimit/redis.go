package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

// RedisRateLimiter is a sliding-window limiter backed by a sorted set per
// subject.
type RedisRateLimiter struct {
	client     redis.Cmdable
	rejections metric.Int64Counter
	now        func() time.Time
}

// NewRedisRateLimiter builds a limiter. rejections may be nil.
func NewRedisRateLimiter(client redis.Cmdable, rejections metric.Int64Counter) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:     client,
		rejections: rejections,
		now:        time.Now,
	}
}

func key(subject string) string {
	return "ratelimit:user:" + subject
}

// AllowRequest records one request for subject and reports whether it fits
// in limit per windowSeconds, plus the remaining budget.
func (rl *RedisRateLimiter) AllowRequest(ctx context.Context, subject string, limit int, windowSeconds int) (bool, int, error) {
	now := rl.now()
	window := time.Duration(windowSeconds) * time.Second
	k := key(subject)

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	countCmd := pipe.ZCard(ctx, k)
	pipe.Expire(ctx, k, 2*window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count, err := countCmd.Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get count: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	allowed := count <= int64(limit)

	if !allowed && rl.rejections != nil {
		rl.rejections.Add(ctx, 1)
	}
	return allowed, remaining, nil
}
