package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockHeld reports that another holder owns the lock.
	ErrLockHeld = errors.New("cache: lock held")
	// ErrLockLost reports that a release found the lock owned by someone else or expired.
	ErrLockLost = errors.New("cache: lock lost")
)

// Store caches JSON values with a TTL.
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Locker grants exclusive short-lived leases keyed by name.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}
