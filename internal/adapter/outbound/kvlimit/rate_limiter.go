// Package kvlimit implements fixed-window rate limiting over any
// outbound.KVStorePort, for deployments running without Redis.
package kvlimit

import (
	"context"
	"strconv"
	"time"

	"github.com/ronchon/server/internal/port/outbound"
)

const keyPrefix = "ratelimit:fw:"

type rateLimiter struct {
	kv  outbound.KVStorePort
	now func() time.Time
}

// NewRateLimiter creates a fixed-window limiter backed by kv.
func NewRateLimiter(kv outbound.KVStorePort) outbound.RateLimiterPort {
	return &rateLimiter{kv: kv, now: time.Now}
}

func (r *rateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := r.kv.Incr(ctx, r.bucket(key, window), window)
	if err != nil {
		return false, err
	}
	return n <= int64(limit), nil
}

func (r *rateLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	v, found, err := r.kv.Get(ctx, r.bucket(key, window))
	if err != nil {
		return 0, err
	}
	if !found {
		return limit, nil
	}
	used, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if remaining := limit - used; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

func (r *rateLimiter) bucket(key string, window time.Duration) string {
	start := r.now().UnixNano() / int64(window)
	return keyPrefix + key + ":" + strconv.FormatInt(start, 10)
}

// Compile-time check
var _ outbound.RateLimiterPort = (*rateLimiter)(nil)
