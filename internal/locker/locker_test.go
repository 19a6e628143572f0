package locker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLockerTryLock(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.TryLock("user-1")
	require.NoError(t, err)

	_, err = l.TryLock("user-1")
	require.ErrorIs(t, err, ErrLocked)

	other, err := l.TryLock("user-2")
	require.NoError(t, err)
	other()

	unlock()
	unlock() // second call is a no-op

	again, err := l.TryLock("user-1")
	require.NoError(t, err)
	again()
}

func TestLocalLockerLockWaits(t *testing.T) {
	l := NewLocalLocker()
	var inside int32
	var maxInside int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside)
}

func TestLocalLockerLockHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.TryLock("k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
