package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hungbv115/education-backend/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of a rate limit check.
type RateDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before trying again.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// RateLimiter throttles requests with a sliding window log kept in Redis.
// Each request is recorded as a sorted-set member scored by its timestamp;
// members older than the window are trimmed on every check.
type RateLimiter struct {
	redis *database.Redis
}

func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func rateKey(key string) string {
	return "ratelimit:" + key
}

// Check records the request against the given key and reports whether it
// fits within limit requests per window.
func (r *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	now := time.Now()
	redisKey := rateKey(key)
	cutoff := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", cutoff).Err(); err != nil {
		return RateDecision{}, fmt.Errorf("trim rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("count rate limit window: %w", err)
	}

	if count >= int64(limit) {
		return RateDecision{RetryAfter: r.retryAfter(ctx, redisKey, window, now)}, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: member,
	}).Err(); err != nil {
		return RateDecision{}, fmt.Errorf("record request: %w", err)
	}

	// Let idle keys expire on their own once the window has passed.
	r.redis.Client.Expire(ctx, redisKey, window+time.Minute)

	remaining := limit - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{Allowed: true, Remaining: remaining}, nil
}

// retryAfter derives the wait time from the oldest entry still inside the
// window. Falls back to the full window when the lookup fails.
func (r *RateLimiter) retryAfter(ctx context.Context, redisKey string, window time.Duration, now time.Time) time.Duration {
	oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return window
	}
	expiresAt := time.UnixMilli(int64(oldest[0].Score)).Add(window)
	wait := expiresAt.Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}
