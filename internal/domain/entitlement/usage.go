package entitlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ronchon/server/internal/port/outbound"
)

// UsageTTL is how long a day's counter lives after its first increment.
const UsageTTL = 24 * time.Hour

// UsageCounter counts admitted requests per client key and UTC day. A new
// day uses a new key, so no reset job exists.
type UsageCounter struct {
	kv outbound.KVStorePort
}

func NewUsageCounter(kv outbound.KVStorePort) *UsageCounter {
	return &UsageCounter{kv: kv}
}

// IncrementAndGet atomically adds one and returns the new count.
func (u *UsageCounter) IncrementAndGet(ctx context.Context, key, day string) (int64, error) {
	n, err := u.kv.Incr(ctx, usageKey(key, day), UsageTTL)
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return n, nil
}

// Get returns the count without changing it, 0 when unset.
func (u *UsageCounter) Get(ctx context.Context, key, day string) (int64, error) {
	v, found, err := u.kv.Get(ctx, usageKey(key, day))
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse usage %q: %w", v, err)
	}
	return n, nil
}

func usageKey(key, day string) string {
	return "hits:" + day + ":" + key
}
