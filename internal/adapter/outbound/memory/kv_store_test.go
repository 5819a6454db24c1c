package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*KVStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewKVStore()
	s.now = clock.Now
	return s, clock
}

func TestKVStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k", "never-set"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	require.NoError(t, s.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, s.Set(ctx, "forever", "v", 0))

	clock.Advance(time.Minute)

	ok, err := s.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire at its deadline")

	ok, err = s.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestKVStore_Incr(t *testing.T) {
	ctx := context.Background()

	t.Run("ttl applies from first write only", func(t *testing.T) {
		s, clock := newTestStore()

		n, err := s.Incr(ctx, "c", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		clock.Advance(59 * time.Minute)
		n, err = s.Incr(ctx, "c", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		clock.Advance(time.Minute)
		n, err = s.Incr(ctx, "c", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "counter restarts once expired")
	})

	t.Run("rejects non integer value", func(t *testing.T) {
		s, _ := newTestStore()
		require.NoError(t, s.Set(ctx, "c", "abc", 0))
		_, err := s.Incr(ctx, "c", 0)
		assert.Error(t, err)
	})

	t.Run("no lost updates under concurrency", func(t *testing.T) {
		s, _ := newTestStore()
		const workers, perWorker = 32, 50

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					_, err := s.Incr(ctx, "hot", time.Hour)
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		v, found, err := s.Get(ctx, "hot")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "1600", v)
	})
}
