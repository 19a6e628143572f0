package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	polargo "github.com/polarsource/polar-go"
	"github.com/polarsource/polar-go/models/components"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/entitlement"
	"github.com/stumpscore/stumpscore/internal/model"
)

const polarCheckoutSucceeded = "succeeded"

// PolarProvider maps an order to a Polar checkout session. The checkout id is
// both order and payment id.
type PolarProvider struct {
	cfg    *config.Config
	client *polargo.Polar
}

func NewPolarProvider(cfg *config.Config) *PolarProvider {
	var serverOption polargo.SDKOption
	if cfg.PolarSandboxMode {
		serverOption = polargo.WithServer(polargo.ServerSandbox)
		slog.Info("polar using sandbox mode", "app_env", cfg.AppEnv)
	} else {
		serverOption = polargo.WithServer(polargo.ServerProduction)
		slog.Info("polar using production mode", "app_env", cfg.AppEnv)
	}

	client := polargo.New(
		polargo.WithSecurity(cfg.PolarAPIKey),
		serverOption,
	)

	return &PolarProvider{
		cfg:    cfg,
		client: client,
	}
}

func (p *PolarProvider) Name() string {
	return model.ProviderPolar
}

func (p *PolarProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Checkout, error) {
	productID := p.productID(req.Plan.Type)
	if productID == "" {
		return nil, fmt.Errorf("no product configured for plan: %s", req.Plan.Type)
	}

	successURL := fmt.Sprintf("%s/premium?checkout_id={CHECKOUT_ID}", p.cfg.AppURL)

	metadata := map[string]components.CheckoutCreateMetadata{
		"user_id":   components.CreateCheckoutCreateMetadataStr(req.UserID),
		"plan_type": components.CreateCheckoutCreateMetadataStr(string(req.Plan.Type)),
	}

	res, err := p.client.Checkouts.Create(ctx, components.CheckoutCreate{
		Products:      []string{productID},
		SuccessURL:    polargo.String(successURL),
		CustomerEmail: polargo.String(req.Email),
		CustomerName:  polargo.String(req.Name),
		Metadata:      metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	if res == nil || res.Checkout == nil {
		return nil, fmt.Errorf("checkout response is nil")
	}

	slog.Info("polar checkout created", "user_id", req.UserID, "plan", req.Plan.Type, "checkout_id", res.Checkout.ID)

	return &Checkout{
		OrderID:     res.Checkout.ID,
		Amount:      req.Plan.MinorAmount(),
		Currency:    req.Currency,
		Provider:    p.Name(),
		CheckoutURL: res.Checkout.URL,
	}, nil
}

func (p *PolarProvider) VerifyPayment(ctx context.Context, proof Proof) error {
	if proof.PaymentID != proof.OrderID {
		return ErrProofMismatch
	}

	res, err := p.client.Checkouts.Get(ctx, proof.OrderID)
	if err != nil {
		return fmt.Errorf("failed to retrieve checkout: %w", err)
	}
	if res == nil || res.Checkout == nil {
		return fmt.Errorf("checkout response is nil")
	}

	if string(res.Checkout.Status) != polarCheckoutSucceeded {
		slog.Warn("polar checkout not succeeded", "checkout_id", proof.OrderID, "status", res.Checkout.Status)
		return ErrPaymentIncomplete
	}

	return nil
}

func (p *PolarProvider) ParseWebhook(payload []byte, headers http.Header) (*WebhookPayment, error) {
	if p.cfg.PolarWebhookSecret == "" {
		return nil, fmt.Errorf("polar webhook secret not configured")
	}

	wh, err := standardwebhooks.NewWebhookRaw([]byte(p.cfg.PolarWebhookSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook verifier: %w", err)
	}

	httpHeaders := http.Header{}
	httpHeaders.Set("webhook-id", headers.Get("webhook-id"))
	httpHeaders.Set("webhook-timestamp", headers.Get("webhook-timestamp"))
	httpHeaders.Set("webhook-signature", headers.Get("webhook-signature"))

	err = wh.Verify(payload, httpHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		} `json:"data"`
	}

	err = json.Unmarshal(payload, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}

	slog.Info("polar webhook received", "event_type", event.Type)

	if event.Type != "checkout.updated" || event.Data.Status != polarCheckoutSucceeded {
		return nil, nil
	}

	return &WebhookPayment{
		OrderID:   event.Data.ID,
		PaymentID: event.Data.ID,
		Amount:    event.Data.Amount,
	}, nil
}

func (p *PolarProvider) productID(plan entitlement.PlanType) string {
	switch plan {
	case entitlement.PlanMonthly:
		return p.cfg.PolarProductIDMonthly
	case entitlement.PlanAnnual:
		return p.cfg.PolarProductIDAnnual
	default:
		return ""
	}
}
