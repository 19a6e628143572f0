package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/service/payment"
	"github.com/stumpscore/stumpscore/internal/validation"
)

// Gateway charges the user for an order.
type Gateway interface {
	Charge(ctx context.Context, order api.Order) (*api.Proof, error)
}

type GatewayFunc func(ctx context.Context, order api.Order) (*api.Proof, error)

func (f GatewayFunc) Charge(ctx context.Context, order api.Order) (*api.Proof, error) {
	return f(ctx, order)
}

// CardForm is the legacy card entry point. The card is checked locally
// before anything is sent to the gateway.
type CardForm struct {
	Card    validation.Card
	Gateway Gateway
	Now     func() time.Time
}

func (c CardForm) Collect(ctx context.Context, order api.Order) (*api.Proof, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	err := validation.ValidateCard(c.Card, now())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Please correct the card details", err)
	}
	return c.Gateway.Charge(ctx, order)
}

// Hosted sends the user to the provider's own checkout.
type Hosted struct {
	Gateway Gateway
}

func (h Hosted) Collect(ctx context.Context, order api.Order) (*api.Proof, error) {
	return h.Gateway.Charge(ctx, order)
}

// SandboxGateway approves every charge and signs the proof with the key
// secret, as Razorpay test mode does. Only for local development.
type SandboxGateway struct {
	KeySecret string
}

func (g SandboxGateway) Charge(ctx context.Context, order api.Order) (*api.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.ErrCancelled.WithCause(err)
	}
	if g.KeySecret == "" {
		return nil, apperr.New(apperr.KindProviderUnavailable, "Sandbox payments are not configured")
	}

	b := make([]byte, 7)
	_, err := rand.Read(b)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServer, "Could not create sandbox payment", err)
	}
	paymentID := "pay_" + hex.EncodeToString(b)

	return &api.Proof{
		OrderID:   order.ID,
		PaymentID: paymentID,
		Signature: payment.SignPayment(g.KeySecret, order.ID, paymentID),
	}, nil
}
