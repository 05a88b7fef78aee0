package domain

import (
	"context"
	"time"
)

// LockManager provides distributed run locks. Acquire returns an unlock
// function that must be called to release the lock; it returns ErrLockHeld
// when another holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SnapshotCache is a read-through cache for pre-serialized response
// snapshots, used by the browse read path to avoid recomputation.
// Get returns ErrNotFound on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, prefix string) error
}
