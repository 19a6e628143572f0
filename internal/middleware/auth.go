package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/ctxkeys"
	"github.com/stumpscore/stumpscore/internal/entitlement"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/respond"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// RequireBearer rejects requests without a valid bearer token and puts the
// token's user in the context. A missing header is reported as no_token;
// anything else that fails is verification_failed.
func RequireBearer(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respond.Error(w, r, apperr.ErrNoToken)
				return
			}

			token := respond.BearerToken(header)
			if token == "" {
				respond.Error(w, r, apperr.ErrVerificationFailed)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindAuth {
					slog.Debug("bearer token rejected", "path", r.URL.Path, "error", err)
				}
				respond.Error(w, r, err)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePremium evaluates the entitlement of the context user on every
// request. It only reads; a lapsed premium flag is reported, never cleared.
func RequirePremium(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := ctxkeys.User(r.Context())
			if user == nil {
				respond.Error(w, r, apperr.ErrNoToken)
				return
			}

			t := now()
			if user.IsPremiumAt(t) {
				next.ServeHTTP(w, r)
				return
			}

			e := *apperr.ErrPremiumRequired
			e.Message = "Premium subscription required for this feature"
			if entitlement.Lapsed(user.IsPremium, user.PremiumUntil, t) {
				e.Message = "Your premium subscription has expired"
				e.Expired = true
			}
			respond.Error(w, r, &e)
		})
	}
}
