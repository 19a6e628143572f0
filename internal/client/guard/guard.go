// Package guard decides whether the client may open a screen, based on the
// cached session and a fresh entitlement check.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stumpscore/stumpscore/internal/client/session"
	"github.com/stumpscore/stumpscore/internal/model"
)

type Class int

const (
	Public Class = iota
	Protected
	Premium
)

func (c Class) String() string {
	switch c {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Premium:
		return "premium"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

const (
	LoginPath   = "/login"
	PremiumPath = "/premium"
)

type Route struct {
	Path  string
	Class Class
}

// Routes is the client's screen table.
var Routes = []Route{
	{Path: "/", Class: Public},
	{Path: "/login", Class: Public},
	{Path: "/signup", Class: Public},
	{Path: "/matches", Class: Public},
	{Path: "/premium", Class: Public},
	{Path: "/profile", Class: Protected},
	{Path: "/subscription", Class: Protected},
	{Path: "/history", Class: Protected},
	{Path: "/predictions", Class: Premium},
}

var ErrUnknownRoute = errors.New("unknown route")

// Decision is the outcome of a guard check. When Allow is false the client
// goes to RedirectTo; From carries the requested path back to the login
// screen.
type Decision struct {
	Allow      bool
	RedirectTo string
	From       string
}

// Decide is pure: the same inputs always give the same decision.
func Decide(route Route, authenticated bool, user *model.UserView, now time.Time) Decision {
	if route.Class == Public {
		return Decision{Allow: true}
	}
	if !authenticated || user == nil {
		return Decision{RedirectTo: LoginPath, From: route.Path}
	}
	if route.Class == Premium && !user.IsPremiumAt(now) {
		return Decision{RedirectTo: PremiumPath}
	}
	return Decision{Allow: true}
}

type Guard struct {
	store  session.Store
	routes map[string]Route
	now    func() time.Time
}

func New(store session.Store, routes []Route, now func() time.Time) *Guard {
	m := make(map[string]Route, len(routes))
	for _, r := range routes {
		m[r.Path] = r
	}
	return &Guard{store: store, routes: m, now: now}
}

// Check resolves path and evaluates it against the stored session.
func (g *Guard) Check(ctx context.Context, path string) (Decision, error) {
	route, ok := g.routes[Normalize(path)]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}

	sess, err := g.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return Decide(route, false, nil, g.now()), nil
	}
	if err != nil {
		return Decision{}, err
	}

	return Decide(route, true, &sess.User, g.now()), nil
}

// Normalize strips the query and trailing slash and ensures a leading slash.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
