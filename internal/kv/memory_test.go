package kv

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

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "a", "1", 0))
	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, s.Delete(ctx, "a"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	clock.Advance(59 * time.Second)
	_, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok, "entry must be gone exactly at its expiry")
}

func TestMemoryStore_IncrWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	for i := int64(1); i <= 3; i++ {
		n, err := s.Incr(ctx, "c", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	clock.Advance(time.Hour)
	n, err := s.Incr(ctx, "c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter restarts once the window has elapsed")
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "short", "x", time.Minute))
	require.NoError(t, s.Set(ctx, "long", "x", time.Hour))
	require.NoError(t, s.Set(ctx, "forever", "x", 0))

	removed := s.Sweep(clock.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Incr(ctx, "n", time.Minute)
		}()
	}
	wg.Wait()

	v, ok, err := s.Get(ctx, "n")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "50", v)
}
