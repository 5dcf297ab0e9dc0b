// Package kv is the small key-value abstraction behind rate limiting and
// session revocation. Memory is process local; Redis is shared between
// instances.
package kv

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the value for key. ok is false when the key is missing or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key. A zero ttl keeps the key until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr increments the counter at key and returns the new value. When the
	// key is created by this call it expires after ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Sweeper is implemented by stores that hold expired entries until swept.
type Sweeper interface {
	Sweep(now time.Time) int
}
