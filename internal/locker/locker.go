// Package locker serialises work per key, either inside one process or across
// processes through redis.
package locker

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("lock is held by another operation")

// Locker hands out exclusive per-key locks. Lock blocks until the lock is
// acquired or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
	TryLock(key string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]chan struct{}),
	}
}

func (l *LocalLocker) TryLock(key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	done := make(chan struct{})
	l.held[key] = done

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
			close(done)
		})
	}, nil
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		unlock, err := l.TryLock(key)
		if err == nil {
			return unlock, nil
		}

		l.mu.Lock()
		done, ok := l.held[key]
		l.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
