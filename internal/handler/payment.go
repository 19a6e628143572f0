package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/ctxkeys"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/respond"
	"github.com/stumpscore/stumpscore/internal/service"
	"github.com/stumpscore/stumpscore/internal/service/payment"
)

// maxWebhookBytes bounds the webhook body read into memory.
const maxWebhookBytes = 1 << 20

type OrderResponse struct {
	*payment.Checkout
	PlanType string `json:"planType"`
}

// VerifyRequest accepts the Razorpay checkout field names and provider-neutral
// aliases.
type VerifyRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	PaymentID         string `json:"paymentId"`
	OrderID           string `json:"orderId"`
	Signature         string `json:"signature"`
	PlanType          string `json:"planType"`
	Amount            *int64 `json:"amount"`
}

func (v VerifyRequest) input() service.VerifyInput {
	return service.VerifyInput{
		OrderID:   firstNonEmpty(v.RazorpayOrderID, v.OrderID),
		PaymentID: firstNonEmpty(v.RazorpayPaymentID, v.PaymentID),
		Signature: firstNonEmpty(v.RazorpaySignature, v.Signature),
		PlanType:  v.PlanType,
		Amount:    v.Amount,
	}
}

type VerifyResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Replayed bool           `json:"replayed"`
	User     model.UserView `json:"user"`
}

type PaymentHandler struct {
	paymentService      *service.PaymentService
	subscriptionService *service.SubscriptionService
}

func NewPaymentHandler(paymentService *service.PaymentService, subscriptionService *service.SubscriptionService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:      paymentService,
		subscriptionService: subscriptionService,
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		PlanType string `json:"planType"`
		Amount   *int64 `json:"amount"`
		Currency string `json:"currency"`
	}
	err := respond.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	checkout, plan, err := h.paymentService.CreateOrder(r.Context(), user, service.OrderInput{
		PlanType: req.PlanType,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, OrderResponse{Checkout: checkout, PlanType: string(plan.Type)})
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req VerifyRequest
	err := respond.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.paymentService.Verify(r.Context(), user.ID, req.input())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	message := "Payment verified successfully"
	if res.Replayed {
		message = "Payment already verified"
	}

	respond.JSON(w, http.StatusOK, VerifyResponse{
		Success:  true,
		Message:  message,
		Replayed: res.Replayed,
		User:     res.User.View(),
	})
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	history, err := h.subscriptionService.History(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, history)
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err)
		respond.Error(w, r, apperr.Wrap(apperr.KindValidation, "Failed to read payload", err))
		return
	}
	defer func() {
		closeErr := r.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close request body", "error", closeErr)
		}
	}()

	err = h.paymentService.HandleWebhook(r.Context(), payload, r.Header)
	if err != nil {
		slog.Error("failed to handle webhook", "error", err, "provider", h.paymentService.Provider())
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
