// Package api is the HTTP client for the StumpScore backend. Every failure it
// returns is an *apperr.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/model"
)

const DefaultTimeout = 15 * time.Second

var ErrUnreachable = apperr.New(apperr.KindServer, "Could not reach the StumpScore server")

type AuthResponse struct {
	model.UserView
	Token string `json:"token"`
}

// GoogleCredential is an authorization code from Google's consent screen,
// redeemed by the backend.
type GoogleCredential struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirectUri"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type Order struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider"`
	PlanType     string `json:"planType"`
	KeyID        string `json:"keyId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	CheckoutURL  string `json:"checkoutUrl,omitempty"`
}

// Proof is what a checkout returns once the user has paid.
type Proof struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyRequest struct {
	Proof
	PlanType string `json:"planType"`
	Amount   int64  `json:"amount"`
}

type VerifyResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Replayed bool           `json:"replayed"`
	User     model.UserView `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the transport client. Its Timeout is overridden.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = c.timeout
	return c
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/users/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/users/login", "", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Google(ctx context.Context, cred GoogleCredential) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/users/google", "", cred, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/users/logout", token, nil, nil)
}

func (c *Client) Profile(ctx context.Context, token string) (*model.UserView, error) {
	var out model.UserView
	err := c.do(ctx, http.MethodGet, "/api/users/profile", token, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, in ProfileUpdate) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPut, "/api/users/profile", token, in, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Subscription(ctx context.Context, token string) (*model.Subscription, error) {
	var out model.Subscription
	err := c.do(ctx, http.MethodGet, "/api/users/subscription", token, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, token, planType string) (*Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/api/payments/create-order", token, map[string]string{"planType": planType}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, token string, in VerifyRequest) (*VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/api/payments/verify", token, in, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, token string) ([]model.PaymentRecord, error) {
	var out []model.PaymentRecord
	err := c.do(ctx, http.MethodGet, "/api/payments/history", token, nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LiveMatches(ctx context.Context) ([]model.Match, error) {
	var out []model.Match
	err := c.do(ctx, http.MethodGet, "/api/matches/live", "", nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Predictions(ctx context.Context, token string) ([]model.Prediction, error) {
	var out []model.Prediction
	err := c.do(ctx, http.MethodGet, "/api/matches/predictions", token, nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, "Invalid request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindServer, "Invalid request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb apperr.Body
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		return apperr.FromResponse(resp.StatusCode, eb)
	}

	if out == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return transportError(fmt.Errorf("failed to decode %s %s: %w", method, path, err))
	}
	return nil
}

func transportError(err error) *apperr.Error {
	if errors.Is(err, context.Canceled) {
		return apperr.ErrCancelled.WithCause(err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.ErrTimeout.WithCause(err)
	}
	return ErrUnreachable.WithCause(err)
}
