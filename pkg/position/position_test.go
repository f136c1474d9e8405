package position

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticMax(v int) MaxFunc {
	return func(context.Context, string, string) (int, error) { return v, nil }
}

func TestDBAllocatorAddsOne(t *testing.T) {
	a := NewDBAllocator(staticMax(4))
	got, err := a.Next(context.Background(), "u1", "inbox")
	require.NoError(t, err)
	require.Equal(t, 5, got)
}

func TestDBAllocatorPropagatesError(t *testing.T) {
	a := NewDBAllocator(func(context.Context, string, string) (int, error) { return 0, errors.New("db down") })
	_, err := a.Next(context.Background(), "u1", "inbox")
	require.Error(t, err)
}

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisAllocatorSeedsFromDatabase(t *testing.T) {
	rdb := newMiniRedis(t)
	a := NewRedisAllocator(rdb, staticMax(7))

	first, err := a.Next(context.Background(), "u1", "inbox")
	require.NoError(t, err)
	require.Equal(t, 8, first)

	second, err := a.Next(context.Background(), "u1", "inbox")
	require.NoError(t, err)
	require.Equal(t, 9, second)

	other, err := a.Next(context.Background(), "u1", "done")
	require.NoError(t, err)
	require.Equal(t, 8, other)
}

func TestRedisAllocatorConcurrentAppendsAreUnique(t *testing.T) {
	rdb := newMiniRedis(t)
	a := NewRedisAllocator(rdb, staticMax(0))

	const n = 20
	var (
		mu   sync.Mutex
		seen = make(map[int]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos, err := a.Next(context.Background(), "u1", "inbox")
			assert.NoError(t, err)
			mu.Lock()
			seen[pos] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		require.True(t, seen[i], "missing position %d", i)
	}
}
