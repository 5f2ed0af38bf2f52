// Package lock provides the keyed critical sections the ledger uses to
// serialize writes to a trip.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when the lock stayed busy until the retries ran
// out. fn was not called.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding the lock named key. Errors from fn are
// returned unchanged. If ctx ends first, ctx.Err() is returned unwrapped
// and fn is not called.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = (*Redis)(nil)
)

// Local is a Locker for a single process. Keys that nobody holds or waits
// on are forgotten, so memory stays proportional to active trips.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := l.acquireRef(key)
	defer l.releaseRef(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()

	return fn(ctx)
}

func (l *Local) acquireRef(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) releaseRef(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports how many keys are currently tracked.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
