package service

import (
	"context"
	"testing"
	"time"

	"github.com/qcom/intake/internal/kv"
	"github.com/qcom/intake/internal/models"
	"github.com/qcom/intake/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := repository.NewMemoryStore()
	cache := kv.NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, store.OTPs.Store(ctx, models.OTPData{Email: "old@example.com", ExpiresAt: clock.Now()}))
	require.NoError(t, store.OTPs.Store(ctx, models.OTPData{Email: "new@example.com", ExpiresAt: clock.Now().Add(time.Minute)}))
	require.NoError(t, cache.Set(ctx, "gone", "1", time.Second))
	require.NoError(t, cache.Set(ctx, "kept", "1", time.Hour))

	clock.Advance(time.Second)
	s := NewSweeper(store.OTPs, time.Minute, quietLogger(), cache)
	s.nowF = clock.Now
	s.SweepOnce(ctx)

	_, err := store.OTPs.Get(ctx, "old@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.OTPs.Get(ctx, "new@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := repository.NewMemoryStore()
	s := NewSweeper(store.OTPs, time.Millisecond, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
