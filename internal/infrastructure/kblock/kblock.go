// Package kblock provides the exclusive per-knowledge-base lock that
// serializes merges, reverts and direct applies.
package kblock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// DefaultTimeout is used when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Locker hands out one weight-1 semaphore per knowledge base.
type Locker struct {
	timeout time.Duration

	mu sync.Mutex
	// locks keeps one entry per knowledge base ever locked and is never
	// pruned. It grows with the number of knowledge bases, not with calls.
	locks map[string]*semaphore.Weighted
}

var _ ports.Locker = (*Locker)(nil)

// New creates a Locker that waits at most timeout for a lock.
func New(timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locker{
		timeout: timeout,
		locks:   make(map[string]*semaphore.Weighted),
	}
}

// Acquire takes the knowledge base's lock. It fails with
// errs.ErrConcurrencyTimeout when the wait exceeds the timeout.
func (l *Locker) Acquire(ctx context.Context, kbID string) (func(), error) {
	sem := l.semaphore(kbID)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring lock for knowledge base %s: %w", kbID, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("knowledge base %s is busy after %s: %w", kbID, l.timeout, errs.ErrConcurrencyTimeout)
		}
		return nil, fmt.Errorf("acquiring lock for knowledge base %s: %w", kbID, err)
	}

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

// Timeout returns the configured wait bound.
func (l *Locker) Timeout() time.Duration {
	return l.timeout
}

func (l *Locker) semaphore(kbID string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[kbID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[kbID] = sem
	}
	return sem
}
