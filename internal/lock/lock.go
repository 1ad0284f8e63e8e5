// Package lock provides named, non-blocking mutual exclusion. The local
// implementation covers a single API process; the Redis implementation
// (redsync) covers several replicas sharing one database.
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrHeld is returned by TryLock when another holder owns the key.
	ErrHeld = errors.New("lock is held by another holder")
	// ErrNotHeld is returned by Unlock when the lock expired or was already released.
	ErrNotHeld = errors.New("lock was not held")
)

// Handle releases an acquired lock.
type Handle interface {
	Unlock(ctx context.Context) error
}

// Locker acquires named locks without waiting.
type Locker interface {
	TryLock(ctx context.Context, key string) (Handle, error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

func (l *Local) TryLock(ctx context.Context, key string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, ErrHeld
	}
	l.held[key] = true
	return &localHandle{owner: l, key: key}, nil
}

type localHandle struct {
	owner *Local
	key   string
	once  sync.Once
}

func (h *localHandle) Unlock(context.Context) error {
	err := ErrNotHeld
	h.once.Do(func() {
		h.owner.mu.Lock()
		delete(h.owner.held, h.key)
		h.owner.mu.Unlock()
		err = nil
	})
	return err
}
