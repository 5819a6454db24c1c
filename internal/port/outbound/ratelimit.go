package outbound

import (
	"context"
	"time"
)

// RateLimiterPort throttles request bursts per caller. It is independent of
// the daily quota.
type RateLimiterPort interface {
	// Allow records one hit for key and reports whether it fits in limit
	// hits per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// GetRemaining reports how many hits key has left in the current window
	// without recording one.
	GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}
