package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/model"
)

// StripeProvider maps an order to a PaymentIntent. The intent id doubles as
// the payment id, so client verification and webhooks key the same record.
type StripeProvider struct {
	cfg *config.Config
}

func NewStripeProvider(cfg *config.Config) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{cfg: cfg}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

func (s *StripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Checkout, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.Plan.MinorAmount()),
		Currency:     stripe.String(strings.ToLower(req.Currency)),
		ReceiptEmail: stripe.String(req.Email),
		Description:  stripe.String(req.Plan.Name),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("plan_type", string(req.Plan.Type))

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	slog.Info("stripe payment intent created", "user_id", req.UserID, "plan", req.Plan.Type, "payment_intent_id", pi.ID)

	return &Checkout{
		OrderID:      pi.ID,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		Provider:     s.Name(),
		ClientSecret: pi.ClientSecret,
	}, nil
}

func (s *StripeProvider) VerifyPayment(ctx context.Context, proof Proof) error {
	if proof.PaymentID != proof.OrderID {
		return ErrProofMismatch
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(proof.OrderID, params)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		slog.Warn("stripe payment intent not succeeded", "payment_intent_id", pi.ID, "status", pi.Status)
		return ErrPaymentIncomplete
	}
	if pi.Amount != proof.Amount {
		return fmt.Errorf("amount %d does not match order amount %d: %w", pi.Amount, proof.Amount, ErrProofMismatch)
	}

	return nil
}

func (s *StripeProvider) ParseWebhook(payload []byte, headers http.Header) (*WebhookPayment, error) {
	signature := headers.Get("Stripe-Signature")

	// Stripe's API versions are backwards compatible for the fields read here
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type)

	if event.Type != "payment_intent.succeeded" {
		return nil, nil
	}

	var pi stripe.PaymentIntent
	err = json.Unmarshal(event.Data.Raw, &pi)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payment intent: %w", err)
	}

	return &WebhookPayment{
		OrderID:   pi.ID,
		PaymentID: pi.ID,
		Amount:    pi.Amount,
	}, nil
}
