package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var (
	ErrGoogleCredentialRequired = apperr.New(apperr.KindAuth, "Google authorization code required")
	ErrGoogleSignInFailed       = apperr.New(apperr.KindAuth, "Google sign-in failed")
	ErrGoogleEmailUnverified    = apperr.New(apperr.KindAuth, "Google account has no verified email")
)

// GoogleCredential is an authorization code from Google's consent screen,
// with the redirect URI and PKCE verifier it was issued for.
type GoogleCredential struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirectUri"`
	CodeVerifier string `json:"codeVerifier"`
}

// GoogleIdentity is the profile Google reported for a redeemed credential.
type GoogleIdentity struct {
	GoogleID       string
	Email          string
	Name           string
	ProfilePicture string
}

// GoogleVerifier redeems a credential with Google. Only identities it returns
// are trusted to sign a user in.
type GoogleVerifier interface {
	Redeem(ctx context.Context, cred GoogleCredential) (*GoogleIdentity, error)
}

type unavailableGoogle struct{}

func (unavailableGoogle) Redeem(context.Context, GoogleCredential) (*GoogleIdentity, error) {
	return nil, apperr.ErrProviderUnavailable
}

// GoogleOAuth exchanges authorization codes and reads the userinfo endpoint.
type GoogleOAuth struct {
	clientID     string
	clientSecret string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewGoogleOAuth(clientID, clientSecret string) GoogleVerifier {
	if clientID == "" || clientSecret == "" {
		return unavailableGoogle{}
	}
	return &GoogleOAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		UserInfoURL:  googleUserInfoURL,
	}
}

func (g *GoogleOAuth) Redeem(ctx context.Context, cred GoogleCredential) (*GoogleIdentity, error) {
	cfg := &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		Endpoint:     g.Endpoint,
		RedirectURL:  cred.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
	}

	var opts []oauth2.AuthCodeOption
	if cred.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(cred.CodeVerifier))
	}

	token, err := cfg.Exchange(ctx, cred.Code, opts...)
	if err != nil {
		slog.Warn("google code exchange failed", "error", err)
		return nil, ErrGoogleSignInFailed.WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get google user info: %w", err)
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		slog.Warn("google userinfo rejected token", "status", resp.StatusCode, "body", string(body))
		return nil, ErrGoogleSignInFailed
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	err = json.NewDecoder(resp.Body).Decode(&info)
	if err != nil {
		return nil, fmt.Errorf("failed to decode google user info: %w", err)
	}
	if info.Sub == "" || info.Email == "" || !info.EmailVerified {
		return nil, ErrGoogleEmailUnverified
	}

	return &GoogleIdentity{
		GoogleID:       info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		ProfilePicture: info.Picture,
	}, nil
}
