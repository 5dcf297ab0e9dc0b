package service

import (
	"context"
	"fmt"
	"time"

	"github.com/qcom/intake/internal/kv"
)

// RateLimiter allows limit events per key in fixed windows. The window
// starts with the first event for the key.
type RateLimiter struct {
	store  kv.Store
	limit  int
	window time.Duration
}

func NewRateLimiter(store kv.Store, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	n, err := l.store.Incr(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return false, fmt.Errorf("failed to update rate limit counter: %w", err)
	}
	return n <= int64(l.limit), nil
}
