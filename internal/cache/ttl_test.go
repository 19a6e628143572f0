package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string](5 * time.Minute).WithClock(func() time.Time { return now })

	c.Set("matches", "v1")
	v, ok := c.Get("matches")
	require.True(t, ok)
	require.Equal(t, "v1", v)

	now = now.Add(4*time.Minute + 59*time.Second)
	_, ok = c.Get("matches")
	require.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("matches")
	require.False(t, ok)
}

func TestTTLGetOrLoad(t *testing.T) {
	c := New[int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		require.NoError(t, err)
		require.Equal(t, 42, v)
	}
	require.Equal(t, 1, calls)

	c.Reset()
	_, err := c.GetOrLoad("k", load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestTTLDoesNotCacheErrors(t *testing.T) {
	c := New[int](time.Minute)

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, errors.New("upstream down") })
	require.Error(t, err)

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestTTLInstancesAreIndependent(t *testing.T) {
	a := New[string](time.Minute)
	b := New[string](time.Minute)

	a.Set("k", "a")
	_, ok := b.Get("k")
	require.False(t, ok)

	a.Delete("k")
	_, ok = a.Get("k")
	require.False(t, ok)
}
