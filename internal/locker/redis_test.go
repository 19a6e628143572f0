package locker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedisLocker(client, "test:lock:", time.Second)
	key := "user-" + time.Now().Format("150405.000000")

	unlock, err := l.TryLock(key)
	require.NoError(t, err)

	_, err = l.TryLock(key)
	require.ErrorIs(t, err, ErrLocked)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	again, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	again()
}

func TestRedisLockerExpires(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedisLocker(client, "test:lock:", 50*time.Millisecond)
	key := "ttl-" + time.Now().Format("150405.000000")

	stale, err := l.TryLock(key)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	fresh, err := l.TryLock(key)
	require.NoError(t, err)

	// releasing the expired holder must not drop the new holder's lock
	stale()
	_, err = l.TryLock(key)
	require.ErrorIs(t, err, ErrLocked)

	fresh()
}
