package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthProvider obtains a Google authorization the backend can redeem.
// Implementations return apperr.ErrCancelled when the user backs out and
// apperr.ErrProviderUnavailable when sign-in cannot be offered at all.
type AuthProvider interface {
	Authorize(ctx context.Context) (*api.GoogleCredential, error)
}

// UnavailableProvider is used when no federated sign-in is configured.
type UnavailableProvider struct{}

func (UnavailableProvider) Authorize(context.Context) (*api.GoogleCredential, error) {
	return nil, apperr.ErrProviderUnavailable
}

// GoogleProvider runs the consent half of the OAuth authorization code flow
// against a loopback redirect, with PKCE. The code is handed to the backend,
// which holds the client secret and performs the exchange.
type GoogleProvider struct {
	clientID string
	// Open presents the consent URL to the user.
	Open func(url string) error
	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

func NewGoogleProvider(clientID string, open func(url string) error) AuthProvider {
	if clientID == "" {
		return UnavailableProvider{}
	}
	return &GoogleProvider{
		clientID: clientID,
		Open:     open,
		Endpoint: google.Endpoint,
	}
}

type callback struct {
	code string
	err  error
}

func (p *GoogleProvider) Authorize(ctx context.Context) (*api.GoogleCredential, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, apperr.ErrProviderUnavailable.WithCause(err)
	}
	defer ln.Close()

	cfg := &oauth2.Config{
		ClientID:    p.clientID,
		Endpoint:    p.Endpoint,
		RedirectURL: fmt.Sprintf("http://%s/callback", ln.Addr()),
		Scopes:      []string{"openid", "email", "profile"},
	}

	state, err := newState()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServer, "Could not start Google sign-in", err)
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callback, 1)
	srv := &http.Server{Handler: callbackHandler(state, results)}
	go func() {
		serveErr := srv.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Debug("oauth callback server stopped", "error", serveErr)
		}
	}()
	defer srv.Close()

	err = p.Open(cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
	if err != nil {
		return nil, apperr.ErrProviderUnavailable.WithCause(err)
	}

	var cb callback
	select {
	case cb = <-results:
	case <-ctx.Done():
		return nil, apperr.ErrCancelled.WithCause(ctx.Err())
	}
	if cb.err != nil {
		return nil, cb.err
	}

	return &api.GoogleCredential{
		Code:         cb.code,
		RedirectURI:  cfg.RedirectURL,
		CodeVerifier: verifier,
	}, nil
}

func callbackHandler(state string, results chan<- callback) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var cb callback
		switch {
		case q.Get("state") != state:
			cb.err = apperr.New(apperr.KindAuth, "Google sign-in state mismatch")
		case q.Get("error") == "access_denied":
			cb.err = apperr.ErrCancelled
		case q.Get("error") != "":
			cb.err = apperr.Wrap(apperr.KindAuth, "Google sign-in failed", errors.New(q.Get("error")))
		case q.Get("code") == "":
			cb.err = apperr.New(apperr.KindAuth, "Google sign-in returned no code")
		default:
			cb.code = q.Get("code")
		}

		select {
		case results <- cb:
		default:
		}

		if cb.err != nil {
			http.Error(w, "Sign-in did not complete. You can close this window.", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "Signed in to StumpScore. You can close this window.")
	})
	return mux
}

func newState() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
