package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/service/payment"
	"github.com/stumpscore/stumpscore/internal/validation"
)

const sandboxSecret = "sandbox-secret"

type fakeBackend struct {
	mu     sync.Mutex
	orders int
	amount int64
}

func (b *fakeBackend) CreateOrder(_ context.Context, token, planType string) (*api.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders++

	amount := b.amount
	if amount == 0 {
		amount = map[string]int64{"monthly": 5000, "annual": 20000}[planType]
	}
	return &api.Order{ID: "order_" + planType, Amount: amount, Currency: "INR", Provider: "razorpay", PlanType: planType}, nil
}

type fakeAccount struct {
	user      *model.UserView
	verifyErr error
	verified  []api.VerifyRequest
}

func (a *fakeAccount) CurrentUser(context.Context) (*model.UserView, error) {
	if a.user == nil {
		return nil, apperr.ErrNoToken
	}
	return a.user, nil
}

func (a *fakeAccount) Token(context.Context) (string, error) {
	return "tok", nil
}

func (a *fakeAccount) UpgradeToPremium(_ context.Context, in api.VerifyRequest) (*api.VerifyResponse, error) {
	a.verified = append(a.verified, in)
	if a.verifyErr != nil {
		return nil, a.verifyErr
	}
	if payment.SignPayment(sandboxSecret, in.OrderID, in.PaymentID) != in.Signature {
		return nil, apperr.New(apperr.KindVerification, "Invalid payment signature")
	}
	u := *a.user
	u.IsPremium = true
	return &api.VerifyResponse{Success: true, User: u}, nil
}

type blockingCheckout struct {
	entered chan struct{}
	release chan struct{}
}

func (c blockingCheckout) Collect(ctx context.Context, order api.Order) (*api.Proof, error) {
	close(c.entered)
	<-c.release
	return SandboxGateway{KeySecret: sandboxSecret}.Charge(ctx, order)
}

func newOrchestrator() (*Orchestrator, *fakeBackend, *fakeAccount) {
	b := &fakeBackend{}
	acc := &fakeAccount{user: &model.UserView{ID: "u1", Email: "fan@x.com"}}
	return NewOrchestrator(b, acc), b, acc
}

func validCard() validation.Card {
	return validation.Card{Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "123", Holder: "Cricket Fan"}
}

func TestRunSucceeds(t *testing.T) {
	o, _, acc := newOrchestrator()

	a, err := o.Run(context.Background(), "monthly", Hosted{Gateway: SandboxGateway{KeySecret: sandboxSecret}})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, a.State())
	require.Equal(t, []State{StateIdle, StateOrderCreated, StateAwaitingUserPayment, StateVerifying, StateSucceeded}, a.History())
	require.True(t, a.Result().User.IsPremium)
	require.Nil(t, a.Err())

	require.Len(t, acc.verified, 1)
	require.Equal(t, int64(5000), acc.verified[0].Amount)
	require.Equal(t, "monthly", acc.verified[0].PlanType)
	require.Equal(t, "order_monthly", acc.verified[0].OrderID)
}

func TestOneAttemptPerUser(t *testing.T) {
	o, _, _ := newOrchestrator()
	ctx := context.Background()

	checkout := blockingCheckout{entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := o.Run(ctx, "annual", checkout)
		done <- err
	}()
	<-checkout.entered

	_, err := o.Start(ctx, "monthly")
	require.ErrorIs(t, err, ErrPaymentInFlight)

	close(checkout.release)
	require.NoError(t, <-done)

	a, err := o.Start(ctx, "monthly")
	require.NoError(t, err)
	require.Equal(t, StateIdle, a.State())
}

func TestInvalidPlanFailsBeforeOrder(t *testing.T) {
	o, b, _ := newOrchestrator()

	_, err := o.Run(context.Background(), "weekly", Hosted{Gateway: SandboxGateway{KeySecret: sandboxSecret}})
	require.ErrorIs(t, err, apperr.ErrInvalidPlan)
	require.Zero(t, b.orders)
}

func TestStartRequiresSession(t *testing.T) {
	o := NewOrchestrator(&fakeBackend{}, &fakeAccount{})

	_, err := o.Start(context.Background(), "monthly")
	require.ErrorIs(t, err, apperr.ErrNoToken)
}

func TestCheckoutCancelled(t *testing.T) {
	o, _, acc := newOrchestrator()
	cancelled := GatewayFunc(func(context.Context, api.Order) (*api.Proof, error) {
		return nil, apperr.ErrCancelled
	})

	a, err := o.Run(context.Background(), "monthly", Hosted{Gateway: cancelled})
	require.ErrorIs(t, err, apperr.ErrCancelled)
	require.Equal(t, StateFailed, a.State())
	require.Equal(t, apperr.KindCancelled, a.Err().Kind)
	require.Empty(t, acc.verified)

	// Terminal: the same attempt cannot be resumed
	require.ErrorIs(t, o.Verify(context.Background(), a), ErrIllegalTransition)
	require.ErrorIs(t, o.Collect(context.Background(), a, Hosted{}), ErrIllegalTransition)

	// but a new attempt can start right away
	_, err = o.Start(context.Background(), "monthly")
	require.NoError(t, err)
}

func TestCardFormValidatesBeforeCharging(t *testing.T) {
	o, _, _ := newOrchestrator()
	charged := false
	gw := GatewayFunc(func(ctx context.Context, order api.Order) (*api.Proof, error) {
		charged = true
		return SandboxGateway{KeySecret: sandboxSecret}.Charge(ctx, order)
	})
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	bad := validCard()
	bad.Number = "4111"
	a, err := o.Run(context.Background(), "monthly", CardForm{Card: bad, Gateway: gw, Now: now})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	require.Equal(t, StateFailed, a.State())
	require.False(t, charged)

	a, err = o.Run(context.Background(), "monthly", CardForm{Card: validCard(), Gateway: gw, Now: now})
	require.NoError(t, err)
	require.True(t, charged)
	require.Equal(t, StateSucceeded, a.State())
}

func TestVerificationRejected(t *testing.T) {
	o, _, acc := newOrchestrator()
	acc.verifyErr = apperr.New(apperr.KindVerification, "Payment verification failed")

	a, err := o.Run(context.Background(), "annual", Hosted{Gateway: SandboxGateway{KeySecret: sandboxSecret}})
	require.Equal(t, apperr.KindVerification, apperr.KindOf(err))
	require.Equal(t, StateFailed, a.State())
	require.Equal(t, []State{StateIdle, StateOrderCreated, StateAwaitingUserPayment, StateVerifying, StateFailed}, a.History())
}

func TestForgedProofRejected(t *testing.T) {
	o, _, _ := newOrchestrator()

	a, err := o.Run(context.Background(), "monthly", Hosted{Gateway: SandboxGateway{KeySecret: "wrong"}})
	require.Equal(t, apperr.KindVerification, apperr.KindOf(err))
	require.Equal(t, StateFailed, a.State())
}

func TestOrderAmountMismatch(t *testing.T) {
	o, b, _ := newOrchestrator()
	b.amount = 100

	a, err := o.Run(context.Background(), "monthly", Hosted{Gateway: SandboxGateway{KeySecret: sandboxSecret}})
	require.Error(t, err)
	require.Equal(t, StateFailed, a.State())
	require.Equal(t, []State{StateIdle, StateFailed}, a.History())
}

func TestAbandon(t *testing.T) {
	o, _, _ := newOrchestrator()
	ctx := context.Background()

	a, err := o.Start(ctx, "monthly")
	require.NoError(t, err)
	require.NoError(t, o.CreateOrder(ctx, a))

	o.Abandon(a)
	require.Equal(t, StateFailed, a.State())
	require.Equal(t, apperr.KindCancelled, a.Err().Kind)

	o.Abandon(a)
	require.Equal(t, StateFailed, a.State())
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateOrderCreated, true},
		{StateIdle, StateVerifying, false},
		{StateOrderCreated, StateAwaitingUserPayment, true},
		{StateAwaitingUserPayment, StateVerifying, true},
		{StateVerifying, StateSucceeded, true},
		{StateSucceeded, StateFailed, false},
		{StateFailed, StateOrderCreated, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.ok, canTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
