package kvlimit

import (
	"context"
	"testing"
	"time"

	"github.com/ronchon/server/internal/adapter/outbound/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	rl := NewRateLimiter(memory.NewKVStore()).(*rateLimiter)
	rl.now = func() time.Time { return now }

	remaining, err := rl.GetRemaining(ctx, "cid:a", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "cid:a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := rl.Allow(ctx, "cid:a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err = rl.GetRemaining(ctx, "cid:a", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// Other keys are independent.
	ok, err = rl.Allow(ctx, "cid:b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = rl.Allow(ctx, "cid:a", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "next window starts fresh")
}
