package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps code issuance per phone number per window, backed by
// redis so the cap holds across instances. A nil limiter allows everything.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if client == nil || limit <= 0 {
		return nil
	}
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow reports whether another code may be issued for the phone number.
func (r *RateLimiter) Allow(ctx context.Context, phoneNumber string) (bool, error) {
	if r == nil {
		return true, nil
	}
	key := fmt.Sprintf("otp:issued:%s", phoneNumber)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr failed: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	return count <= int64(r.limit), nil
}
