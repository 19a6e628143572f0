// Package auth keeps the client's signed-in state in step with the backend.
// The session store is written only after the backend accepted a call.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/client/session"
	"github.com/stumpscore/stumpscore/internal/model"
)

// Backend is the subset of the API the controller drives.
type Backend interface {
	Register(ctx context.Context, name, email, password string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Google(ctx context.Context, cred api.GoogleCredential) (*api.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*model.UserView, error)
	Verify(ctx context.Context, token string, in api.VerifyRequest) (*api.VerifyResponse, error)
}

type Controller struct {
	backend  Backend
	store    session.Store
	provider AuthProvider

	mu      sync.Mutex
	lastErr *apperr.Error
}

func NewController(backend Backend, store session.Store, provider AuthProvider) *Controller {
	if provider == nil {
		provider = UnavailableProvider{}
	}
	return &Controller{
		backend:  backend,
		store:    store,
		provider: provider,
	}
}

func (c *Controller) Signup(ctx context.Context, name, email, password string) (*model.UserView, error) {
	resp, err := c.backend.Register(ctx, name, email, password)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.establish(ctx, resp)
}

func (c *Controller) Login(ctx context.Context, email, password string) (*model.UserView, error) {
	resp, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.establish(ctx, resp)
}

// LoginWithGoogle obtains a Google authorization from the configured provider
// and exchanges it with the backend for a session. Cancellation and a missing provider surface
// as their own error kinds.
func (c *Controller) LoginWithGoogle(ctx context.Context) (*model.UserView, error) {
	cred, err := c.provider.Authorize(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	resp, err := c.backend.Google(ctx, *cred)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.establish(ctx, resp)
}

// Logout always clears the local session. A failed server notification is
// only logged.
func (c *Controller) Logout(ctx context.Context) error {
	sess, loadErr := c.store.Load(ctx)

	err := c.store.Clear(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.setLastErr(nil)

	if loadErr != nil {
		return nil
	}

	err = c.backend.Logout(ctx, sess.Token)
	if err != nil {
		slog.Warn("logout notification failed", "user_id", sess.User.ID, "error", err)
	}
	return nil
}

// UpgradeToPremium submits a payment proof and stores the user the backend
// returns, keeping the current token. A sign-out while the call was in flight
// stays signed out.
func (c *Controller) UpgradeToPremium(ctx context.Context, in api.VerifyRequest) (*api.VerifyResponse, error) {
	sess, err := c.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.backend.Verify(ctx, sess.Token, in)
	if err != nil {
		return nil, c.failProtected(ctx, err)
	}

	err = c.store.Replace(ctx, sess.Token, session.Session{Token: sess.Token, User: resp.User})
	if errors.Is(err, session.ErrNoSession) {
		slog.Info("session ended during upgrade, not restoring it", "user_id", resp.User.ID)
	} else if err != nil {
		return nil, c.fail(err)
	}
	c.setLastErr(nil)
	return resp, nil
}

// RefreshUser replaces the cached user with the backend's current view. It
// reports ErrNoToken if the session ended while the profile was loading.
func (c *Controller) RefreshUser(ctx context.Context) (*model.UserView, error) {
	sess, err := c.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	user, err := c.backend.Profile(ctx, sess.Token)
	if err != nil {
		return nil, c.failProtected(ctx, err)
	}

	err = c.store.Replace(ctx, sess.Token, session.Session{Token: sess.Token, User: *user})
	if errors.Is(err, session.ErrNoSession) {
		return nil, c.fail(apperr.ErrNoToken)
	}
	if err != nil {
		return nil, c.fail(err)
	}
	c.setLastErr(nil)
	return user, nil
}

func (c *Controller) IsAuthenticated(ctx context.Context) bool {
	_, err := c.store.Load(ctx)
	return err == nil
}

// CurrentUser returns the cached user without contacting the backend.
func (c *Controller) CurrentUser(ctx context.Context) (*model.UserView, error) {
	sess, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// Authorized runs fn with the stored token, applying the same session rules
// as the controller's own protected calls.
func (c *Controller) Authorized(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	sess, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, sess.Token)
	if err != nil {
		return c.failProtected(ctx, err)
	}
	c.setLastErr(nil)
	return nil
}

// Token returns the stored bearer token.
func (c *Controller) Token(ctx context.Context) (string, error) {
	sess, err := c.requireSession(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// LastError is the error of the most recent failed call, or nil after a
// success.
func (c *Controller) LastError() *apperr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) establish(ctx context.Context, resp *api.AuthResponse) (*model.UserView, error) {
	err := c.store.Save(ctx, session.Session{Token: resp.Token, User: resp.UserView})
	if err != nil {
		return nil, c.fail(err)
	}
	c.setLastErr(nil)

	user := resp.UserView
	return &user, nil
}

func (c *Controller) requireSession(ctx context.Context) (*session.Session, error) {
	sess, err := c.store.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, c.fail(apperr.ErrNoToken)
	}
	if err != nil {
		return nil, c.fail(err)
	}
	return sess, nil
}

// failProtected records err and drops the session when the backend rejected
// the token.
func (c *Controller) failProtected(ctx context.Context, err error) error {
	e := c.fail(err)
	if e.Kind == apperr.KindAuth {
		clearErr := c.store.Clear(ctx)
		if clearErr != nil {
			slog.Warn("failed to clear rejected session", "error", clearErr)
		}
	}
	return e
}

func (c *Controller) fail(err error) *apperr.Error {
	e := apperr.As(err)
	c.setLastErr(e)
	return e
}

func (c *Controller) setLastErr(e *apperr.Error) {
	c.mu.Lock()
	c.lastErr = e
	c.mu.Unlock()
}
