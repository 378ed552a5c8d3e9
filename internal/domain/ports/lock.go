package ports

import "context"

// Locker hands out the exclusive per-knowledge-base lock that serializes
// every mutation of live entities.
type Locker interface {
	// Acquire blocks until the lock is held, the configured wait elapses or
	// ctx is done. The returned func releases the lock.
	Acquire(ctx context.Context, kbID string) (release func(), err error)
}
