package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to one execution across engine replicas.
// In-process exclusion is provided by the conversation manager; the locker extends it
// to other processes sharing the same store.
type DistributedLocker interface {
	// Lock blocks until the lock on key is held, ctx is canceled or the implementation gives up.
	// The lock expires after ttl if never released. The returned UnlockFunc must be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
