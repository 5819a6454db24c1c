package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*KVStore, *time.Time) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestKVStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	assert.Equal(t, "sqlite", s.Name())
	require.NoError(t, s.Ping(ctx))

	_, found, err := s.Get(ctx, "premium:cid:abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "premium:cid:abc", "1", 0))
	require.NoError(t, s.Set(ctx, "premium:cid:abc", "1", 0), "set is idempotent")

	ok, err := s.Exists(ctx, "premium:cid:abc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Set(ctx, "cust2key:cus_1", "cid:abc", 0))
	require.NoError(t, s.Delete(ctx, "premium:cid:abc", "cust2key:cus_1", "missing"))

	ok, err = s.Exists(ctx, "cust2key:cus_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_ExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	s, now := openTestStore(t)

	require.NoError(t, s.Set(ctx, "events:evt_1", "1", time.Hour))
	require.NoError(t, s.Set(ctx, "premium:x", "1", 0))

	*now = now.Add(time.Hour)

	ok, err := s.Exists(ctx, "events:evt_1")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ok, err = s.Exists(ctx, "premium:x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKVStore_Incr(t *testing.T) {
	ctx := context.Background()
	s, now := openTestStore(t)

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "hits:2026-03-01:cid:abc", 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	*now = now.Add(24 * time.Hour)
	n, err := s.Incr(ctx, "hits:2026-03-01:cid:abc", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts")
}

func TestKVStore_IncrConcurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Incr(ctx, "hot", time.Hour)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, found, err := s.Get(ctx, "hot")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "100", v)
}

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "premium:cid:abc", "1", 0))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Exists(ctx, "premium:cid:abc")
	require.NoError(t, err)
	assert.True(t, ok)
}
