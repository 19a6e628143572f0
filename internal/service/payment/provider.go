package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/entitlement"
)

var (
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrPaymentIncomplete = errors.New("payment has not completed")
	ErrProofMismatch     = errors.New("payment does not belong to this order")
)

// OrderRequest asks a provider to mint an order for one plan purchase.
type OrderRequest struct {
	UserID   string
	Email    string
	Name     string
	Plan     entitlement.Plan
	Currency string
}

// Checkout is what the client needs to take the user through payment.
// Amount is in minor units.
type Checkout struct {
	OrderID      string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider"`
	KeyID        string `json:"keyId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	CheckoutURL  string `json:"checkoutUrl,omitempty"`
}

// Proof is the client's claim that an order was paid.
type Proof struct {
	OrderID   string
	PaymentID string
	Signature string
	// Amount is the minor amount recorded on the order.
	Amount int64
}

// WebhookPayment is a provider-confirmed payment extracted from a webhook.
type WebhookPayment struct {
	OrderID   string
	PaymentID string
	Amount    int64
}

// Provider defines the interface that all payment providers must implement
type Provider interface {
	// Name returns the provider name (e.g., "razorpay", "stripe")
	Name() string

	// CreateOrder mints a provider order for the plan's price
	CreateOrder(ctx context.Context, req OrderRequest) (*Checkout, error)

	// VerifyPayment confirms with the provider that proof describes a
	// completed payment of the order
	VerifyPayment(ctx context.Context, proof Proof) error

	// ParseWebhook authenticates a webhook and returns the payment it reports,
	// or nil for events that do not complete a payment
	ParseWebhook(payload []byte, headers http.Header) (*WebhookPayment, error)
}
