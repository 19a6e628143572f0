package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/ctxkeys"
	"github.com/stumpscore/stumpscore/internal/model"
)

type fakeAuth map[string]*model.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	u, ok := f[token]
	if !ok {
		return nil, apperr.ErrVerificationFailed
	}
	return u, nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ctxkeys.User(r.Context()).ID))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) apperr.Body {
	t.Helper()
	var body apperr.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireBearer(t *testing.T) {
	h := RequireBearer(fakeAuth{"good": {ID: "u1"}})(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, apperr.CodeNoToken},
		{"not bearer", "Basic abc", http.StatusUnauthorized, apperr.CodeVerificationFailed},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, apperr.CodeVerificationFailed},
		{"valid", "Bearer good", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				require.Equal(t, tt.code, decodeBody(t, rec).Code)
			} else {
				require.Equal(t, "u1", rec.Body.String())
			}
		})
	}
}

func TestRequirePremium(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		user    *model.User
		status  int
		expired bool
	}{
		{"free user", &model.User{ID: "u"}, http.StatusForbidden, false},
		{"active", &model.User{ID: "u", IsPremium: true, PremiumUntil: &future}, http.StatusOK, false},
		{"no expiry", &model.User{ID: "u", IsPremium: true}, http.StatusOK, false},
		{"lapsed", &model.User{ID: "u", IsPremium: true, PremiumUntil: &past}, http.StatusForbidden, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.user.IsPremium
			h := RequirePremium(func() time.Time { return now })(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(http.MethodGet, "/api/matches/predictions", nil)
			req = req.WithContext(ctxkeys.WithUser(req.Context(), tt.user))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusForbidden {
				body := decodeBody(t, rec)
				require.Equal(t, string(apperr.KindPremiumRequired), body.Code)
				require.Equal(t, tt.expired, body.Expired)
			}
			// The gate never rewrites the stored flag
			require.Equal(t, stored, tt.user.IsPremium)
		})
	}
}

func TestRateLimitAuth(t *testing.T) {
	h := RateLimitAuth(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	other.RemoteAddr = "198.51.100.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS("https://stumpscore.app")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight reached handler")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/users/login", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://stumpscore.app", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 15*time.Minute)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
	require.True(t, rl.Allow("b"))

	now = now.Add(15 * time.Minute)
	require.True(t, rl.Allow("a"))
	require.Len(t, rl.windows, 1)
}
