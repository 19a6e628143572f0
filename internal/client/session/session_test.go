package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/model"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "client", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample() Session {
	until := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return Session{
		Token: "tok-1",
		User: model.UserView{
			ID:           "u1",
			Name:         "Fan",
			Email:        "fan@x.com",
			IsPremium:    true,
			PremiumUntil: &until,
			CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return openStore(t) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)

			require.NoError(t, s.Save(ctx, sample()))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, "tok-1", got.Token)
			require.Equal(t, "u1", got.User.ID)
			require.True(t, got.User.PremiumUntil.Equal(*sample().User.PremiumUntil))

			next := sample()
			next.Token = "tok-2"
			next.User.Name = "Super Fan"
			require.NoError(t, s.Save(ctx, next))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, "tok-2", got.Token)
			require.Equal(t, "Super Fan", got.User.Name)

			require.NoError(t, s.Clear(ctx))
			_, err = s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)
			require.NoError(t, s.Clear(ctx))
		})
	}
}

func TestSQLiteHalfWrittenSessionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.db.Exec(`INSERT INTO session (key, value) VALUES ($1, $2)`, KeyToken, "orphan")
	require.NoError(t, err)

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	var n int
	require.NoError(t, s.db.Get(&n, `SELECT COUNT(*) FROM session`))
	require.Zero(t, n)
}

func TestSQLiteCorruptUserIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Save(ctx, sample()))

	_, err := s.db.Exec(`UPDATE session SET value = 'not json' WHERE key = $1`, KeyUser)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSQLiteNeverStoresPassword(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Save(ctx, sample()))

	var raw string
	require.NoError(t, s.db.Get(&raw, `SELECT value FROM session WHERE key = $1`, KeyUser))
	require.NotContains(t, raw, "password")
}

func TestStoresRejectEmptyToken(t *testing.T) {
	for name, s := range map[string]Store{"memory": NewMemoryStore(), "sqlite": openStore(t)} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.ErrorIs(t, s.Save(ctx, Session{User: sample().User}), ErrEmptyToken)

			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)

			require.NoError(t, s.Save(ctx, sample()))
			require.ErrorIs(t, s.Replace(ctx, "tok-1", Session{User: sample().User}), ErrEmptyToken)
		})
	}
}

func TestReplaceOnlyWhileSessionHeld(t *testing.T) {
	for name, s := range map[string]Store{"memory": NewMemoryStore(), "sqlite": openStore(t)} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			refreshed := sample()
			refreshed.User.Name = "Refreshed"
			require.ErrorIs(t, s.Replace(ctx, "tok-1", refreshed), ErrNoSession)
			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)

			require.NoError(t, s.Save(ctx, sample()))
			require.NoError(t, s.Replace(ctx, "tok-1", refreshed))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, "Refreshed", got.User.Name)

			// A sign-out in between wins over the late write
			require.NoError(t, s.Clear(ctx))
			require.ErrorIs(t, s.Replace(ctx, "tok-1", refreshed), ErrNoSession)
			_, err = s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSession)

			// So does a sign-in as someone else
			other := sample()
			other.Token = "tok-other"
			other.User.ID = "u2"
			require.NoError(t, s.Save(ctx, other))
			require.ErrorIs(t, s.Replace(ctx, "tok-1", refreshed), ErrNoSession)
			got, err = s.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, "u2", got.User.ID)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "fan@x.com", got.User.Email)
}
