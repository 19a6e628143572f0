package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/entitlement"
	"github.com/stumpscore/stumpscore/internal/locker"
	"github.com/stumpscore/stumpscore/internal/metrics"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/repository"
	"github.com/stumpscore/stumpscore/internal/service/payment"
)

var (
	ErrMissingPaymentDetails = apperr.New(apperr.KindValidation, "Missing required payment details")
	ErrAmountMismatch        = apperr.New(apperr.KindValidation, "Amount does not match the selected plan")
	ErrPaymentVerification   = apperr.New(apperr.KindVerification, "Payment verification failed")
	ErrInvalidSignature      = apperr.New(apperr.KindVerification, "Invalid payment signature")
)

// OrderInput is a request to start paying for a plan. Amount, when present, is
// in the major currency unit and must equal the plan price.
type OrderInput struct {
	PlanType string
	Amount   *int64
	Currency string
}

// VerifyInput is the proof a client submits after checkout. Amount, when
// present, is the minor amount the checkout charged.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	PlanType  string
	Amount    *int64
}

type VerifyResult struct {
	User     *model.User
	Replayed bool
}

type PaymentService struct {
	provider payment.Provider
	payments repository.PaymentRepository
	locker   locker.Locker
	mailer   Mailer
	currency string
	now      func() time.Time
}

func NewPaymentService(
	provider payment.Provider,
	payments repository.PaymentRepository,
	locker locker.Locker,
	mailer Mailer,
	currency string,
	now func() time.Time,
) *PaymentService {
	return &PaymentService{
		provider: provider,
		payments: payments,
		locker:   locker,
		mailer:   mailer,
		currency: currency,
		now:      now,
	}
}

func (s *PaymentService) Provider() string {
	return s.provider.Name()
}

// CreateOrder mints a provider order for the plan and records it. Every call
// creates a new order.
func (s *PaymentService) CreateOrder(ctx context.Context, user *model.User, in OrderInput) (*payment.Checkout, entitlement.Plan, error) {
	plan, err := entitlement.LookupPlan(in.PlanType)
	if err != nil {
		return nil, entitlement.Plan{}, err
	}
	if in.Amount != nil && *in.Amount != plan.Price {
		return nil, entitlement.Plan{}, ErrAmountMismatch
	}

	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	checkout, err := s.provider.CreateOrder(ctx, payment.OrderRequest{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Plan:     plan,
		Currency: currency,
	})
	if err != nil {
		return nil, entitlement.Plan{}, fmt.Errorf("failed to create %s order: %w", s.provider.Name(), err)
	}

	order := &model.Order{
		ID:        checkout.OrderID,
		UserID:    user.ID,
		PlanType:  string(plan.Type),
		Amount:    checkout.Amount,
		Currency:  checkout.Currency,
		Provider:  s.provider.Name(),
		Status:    model.OrderStatusCreated,
		CreatedAt: s.now(),
	}

	err = s.payments.CreateOrder(ctx, order)
	if err != nil {
		return nil, entitlement.Plan{}, fmt.Errorf("failed to save order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(plan.Type), s.provider.Name()).Inc()
	slog.Info("order created", "user_id", user.ID, "order_id", order.ID, "plan", plan.Type, "provider", order.Provider)

	return checkout, plan, nil
}

// Verify checks a payment proof and grants premium. The plan is validated
// before anything else and nothing is written unless every check passes.
// Repeating a verify for an already recorded payment returns the current user
// with Replayed set.
func (s *PaymentService) Verify(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error) {
	plan, err := entitlement.LookupPlan(in.PlanType)
	if err != nil {
		s.countVerify("rejected")
		return nil, err
	}
	if in.Amount != nil && *in.Amount != plan.MinorAmount() {
		s.countVerify("rejected")
		return nil, ErrAmountMismatch
	}
	if in.OrderID == "" || in.PaymentID == "" {
		s.countVerify("rejected")
		return nil, ErrMissingPaymentDetails
	}

	order, err := s.payments.OrderByID(ctx, in.OrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		s.countVerify("rejected")
		return nil, ErrPaymentVerification.WithCause(err)
	}
	if err != nil {
		s.countVerify("error")
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID || order.PlanType != string(plan.Type) || order.Amount != plan.MinorAmount() {
		s.countVerify("rejected")
		slog.Warn("payment proof does not match order", "user_id", userID, "order_id", order.ID, "order_plan", order.PlanType, "plan", plan.Type)
		return nil, ErrPaymentVerification
	}

	err = s.provider.VerifyPayment(ctx, payment.Proof{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
		Amount:    order.Amount,
	})
	if errors.Is(err, payment.ErrSignatureMismatch) {
		s.countVerify("rejected")
		return nil, ErrInvalidSignature.WithCause(err)
	}
	if err != nil {
		s.countVerify("rejected")
		slog.Warn("payment verification failed", "user_id", userID, "order_id", order.ID, "error", err)
		return nil, ErrPaymentVerification.WithCause(err)
	}

	return s.grant(ctx, order, in.PaymentID, plan)
}

// HandleWebhook applies a provider-signed payment event. Events that are not
// payments, or that refer to unknown orders, are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	event, err := s.provider.ParseWebhook(payload, headers)
	if err != nil {
		return apperr.Wrap(apperr.KindVerification, "Invalid webhook", err)
	}
	if event == nil {
		return nil
	}

	order, err := s.payments.OrderByID(ctx, event.OrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		slog.Warn("webhook for unknown order", "order_id", event.OrderID, "payment_id", event.PaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if event.Amount != 0 && event.Amount != order.Amount {
		slog.Warn("webhook amount does not match order", "order_id", order.ID, "amount", event.Amount, "expected", order.Amount)
		return nil
	}

	plan, err := entitlement.LookupPlan(order.PlanType)
	if err != nil {
		return fmt.Errorf("order %s has unknown plan %q: %w", order.ID, order.PlanType, err)
	}

	_, err = s.grant(ctx, order, event.PaymentID, plan)
	return err
}

func (s *PaymentService) grant(ctx context.Context, order *model.Order, paymentID string, plan entitlement.Plan) (*VerifyResult, error) {
	unlock, err := s.locker.Lock(ctx, "premium:"+order.UserID)
	if err != nil {
		s.countVerify("error")
		return nil, fmt.Errorf("failed to lock user %s: %w", order.UserID, err)
	}
	defer unlock()

	now := s.now()
	user, replayed, err := s.payments.GrantPremium(ctx, repository.Grant{
		Record: model.PaymentRecord{
			ID:        uuid.New().String(),
			UserID:    order.UserID,
			OrderID:   order.ID,
			PaymentID: paymentID,
			PlanType:  string(plan.Type),
			Amount:    plan.Price,
			Currency:  order.Currency,
			Provider:  order.Provider,
			CreatedAt: now,
		},
		PremiumUntil: plan.ExtendFrom(now),
		At:           now,
	})
	if errors.Is(err, repository.ErrPaymentClaimed) || errors.Is(err, repository.ErrOrderPaid) {
		s.countVerify("rejected")
		slog.Warn("payment rejected", "user_id", order.UserID, "order_id", order.ID, "payment_id", paymentID, "error", err)
		return nil, ErrPaymentVerification.WithCause(err)
	}
	if err != nil {
		s.countVerify("error")
		return nil, fmt.Errorf("failed to grant premium: %w", err)
	}

	if replayed {
		s.countVerify("replayed")
		slog.Info("payment already recorded", "user_id", user.ID, "payment_id", paymentID)
		return &VerifyResult{User: user, Replayed: true}, nil
	}

	s.countVerify("granted")
	slog.Info("premium granted", "user_id", user.ID, "payment_id", paymentID, "plan", plan.Type, "premium_until", user.PremiumUntil)

	rec := model.PaymentRecord{Amount: plan.Price, Currency: order.Currency}
	err = s.mailer.SendPremiumReceipt(ctx, user.Email, Receipt{
		Name:         user.Name,
		PlanName:     plan.Name,
		Price:        rec.FormatPrice(),
		PaymentID:    paymentID,
		PremiumUntil: *user.PremiumUntil,
	})
	if err != nil {
		slog.Warn("failed to send premium receipt", "user_id", user.ID, "error", err)
	}

	return &VerifyResult{User: user}, nil
}

func (s *PaymentService) countVerify(outcome string) {
	metrics.PaymentVerifications.WithLabelValues(outcome, s.provider.Name()).Inc()
}
