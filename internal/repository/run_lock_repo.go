package repository

import (
	"context"
	"time"
)

// RunLockRepository guarantees a single crawl run at a time.
type RunLockRepository interface {
	// Acquire takes the lock for owner; it reports false if someone else holds it.
	Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	// Release frees the lock only if owner still holds it.
	Release(ctx context.Context, owner string) error
	// Holder returns the current owner, or "" when the lock is free.
	Holder(ctx context.Context) (string, error)
}
