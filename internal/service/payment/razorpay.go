package payment

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/model"
)

// RazorpayProvider mints orders locally and checks the checkout signature
// Razorpay returns to the browser: hex(HMAC-SHA256(key_secret, order_id|payment_id)).
type RazorpayProvider struct {
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayProvider(cfg *config.Config) *RazorpayProvider {
	slog.Info("razorpay provider initialized", "app_env", cfg.AppEnv)

	return &RazorpayProvider{
		keyID:         cfg.RazorpayKeyID,
		keySecret:     cfg.RazorpayKeySecret,
		webhookSecret: cfg.RazorpayWebhookSecret,
	}
}

func (p *RazorpayProvider) Name() string {
	return model.ProviderRazorpay
}

func (p *RazorpayProvider) CreateOrder(_ context.Context, req OrderRequest) (*Checkout, error) {
	id, err := newOrderID()
	if err != nil {
		return nil, fmt.Errorf("failed to mint order id: %w", err)
	}

	slog.Info("razorpay order created", "user_id", req.UserID, "plan", req.Plan.Type, "order_id", id)

	return &Checkout{
		OrderID:  id,
		Amount:   req.Plan.MinorAmount(),
		Currency: req.Currency,
		Provider: p.Name(),
		KeyID:    p.keyID,
	}, nil
}

func (p *RazorpayProvider) VerifyPayment(_ context.Context, proof Proof) error {
	if proof.OrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return fmt.Errorf("missing payment details: %w", ErrSignatureMismatch)
	}

	expected := SignPayment(p.keySecret, proof.OrderID, proof.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(proof.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func (p *RazorpayProvider) ParseWebhook(payload []byte, headers http.Header) (*WebhookPayment, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("razorpay webhook secret not configured")
	}

	signature := headers.Get("X-Razorpay-Signature")
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("invalid webhook signature: %w", ErrSignatureMismatch)
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}

	err := json.Unmarshal(payload, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}

	slog.Info("razorpay webhook received", "event_type", event.Event)

	if event.Event != "payment.captured" {
		return nil, nil
	}

	entity := event.Payload.Payment.Entity
	return &WebhookPayment{
		OrderID:   entity.OrderID,
		PaymentID: entity.ID,
		Amount:    entity.Amount,
	}, nil
}

// SignPayment computes the checkout signature for an order and payment.
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newOrderID() (string, error) {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return "order_" + hex.EncodeToString(b), nil
}
