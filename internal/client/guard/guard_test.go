package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/client/session"
	"github.com/stumpscore/stumpscore/internal/model"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func premiumUser(until time.Time) *model.UserView {
	return &model.UserView{ID: "u1", IsPremium: true, PremiumUntil: &until}
}

func TestDecide(t *testing.T) {
	predictions := Route{Path: "/predictions", Class: Premium}
	profile := Route{Path: "/profile", Class: Protected}
	matches := Route{Path: "/matches", Class: Public}

	tests := []struct {
		name   string
		route  Route
		authed bool
		user   *model.UserView
		want   Decision
	}{
		{"public anonymous", matches, false, nil, Decision{Allow: true}},
		{"protected anonymous", profile, false, nil, Decision{RedirectTo: "/login", From: "/profile"}},
		{"premium anonymous", predictions, false, nil, Decision{RedirectTo: "/login", From: "/predictions"}},
		{"public free", matches, true, &model.UserView{ID: "u1"}, Decision{Allow: true}},
		{"public premium", matches, true, premiumUser(now.Add(time.Hour)), Decision{Allow: true}},
		{"public lapsed", matches, true, premiumUser(now.Add(-time.Hour)), Decision{Allow: true}},
		{"protected free", profile, true, &model.UserView{ID: "u1"}, Decision{Allow: true}},
		{"protected premium", profile, true, premiumUser(now.Add(time.Hour)), Decision{Allow: true}},
		{"protected lapsed", profile, true, premiumUser(now.Add(-time.Hour)), Decision{Allow: true}},
		{"premium free", predictions, true, &model.UserView{ID: "u1"}, Decision{RedirectTo: "/premium"}},
		{"premium active", predictions, true, premiumUser(now.Add(time.Hour)), Decision{Allow: true}},
		{"premium lapsed", predictions, true, premiumUser(now.Add(-time.Hour)), Decision{RedirectTo: "/premium"}},
		{"premium ends now", predictions, true, premiumUser(now), Decision{RedirectTo: "/premium"}},
		{"premium no expiry", predictions, true, &model.UserView{ID: "u1", IsPremium: true}, Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Decide(tt.route, tt.authed, tt.user, now))
		})
	}
}

func TestCheckUsesFreshClock(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, session.Session{Token: "tok", User: *premiumUser(now.Add(time.Hour))}))

	clock := now
	g := New(store, Routes, func() time.Time { return clock })

	d, err := g.Check(ctx, "/predictions")
	require.NoError(t, err)
	require.True(t, d.Allow)

	// The cached flag is still set but the period is over
	clock = now.Add(2 * time.Hour)
	d, err = g.Check(ctx, "predictions/?tab=live")
	require.NoError(t, err)
	require.Equal(t, Decision{RedirectTo: "/premium"}, d)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, sess.User.IsPremium)
}

func TestCheckAnonymous(t *testing.T) {
	g := New(session.NewMemoryStore(), Routes, func() time.Time { return now })

	d, err := g.Check(context.Background(), "/history")
	require.NoError(t, err)
	require.Equal(t, Decision{RedirectTo: "/login", From: "/history"}, d)

	d, err = g.Check(context.Background(), "/")
	require.NoError(t, err)
	require.True(t, d.Allow)
}

func TestCheckUnknownRoute(t *testing.T) {
	g := New(session.NewMemoryStore(), Routes, time.Now)

	_, err := g.Check(context.Background(), "/admin")
	require.ErrorIs(t, err, ErrUnknownRoute)
}
