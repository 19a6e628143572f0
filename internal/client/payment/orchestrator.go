// Package payment drives one premium purchase on the client from order
// creation through user payment to backend verification.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/entitlement"
	"github.com/stumpscore/stumpscore/internal/locker"
	"github.com/stumpscore/stumpscore/internal/model"
)

type State string

const (
	StateIdle                State = "IDLE"
	StateOrderCreated        State = "ORDER_CREATED"
	StateAwaitingUserPayment State = "AWAITING_USER_PAYMENT"
	StateVerifying           State = "VERIFYING"
	StateSucceeded           State = "SUCCEEDED"
	StateFailed              State = "FAILED"
)

var transitions = map[State][]State{
	StateIdle:                {StateOrderCreated, StateFailed},
	StateOrderCreated:        {StateAwaitingUserPayment, StateFailed},
	StateAwaitingUserPayment: {StateVerifying, StateFailed},
	StateVerifying:           {StateSucceeded, StateFailed},
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	ErrPaymentInFlight   = apperr.New(apperr.KindValidation, "A payment is already in progress")
	ErrIllegalTransition = errors.New("illegal payment state transition")
)

// Backend mints orders.
type Backend interface {
	CreateOrder(ctx context.Context, token, planType string) (*api.Order, error)
}

// Account is the signed-in side of the client: it supplies the token and
// submits the proof so the cached session picks up the new entitlement.
type Account interface {
	CurrentUser(ctx context.Context) (*model.UserView, error)
	Token(ctx context.Context) (string, error)
	UpgradeToPremium(ctx context.Context, in api.VerifyRequest) (*api.VerifyResponse, error)
}

// Checkout collects the user's payment for an order and returns the proof.
type Checkout interface {
	Collect(ctx context.Context, order api.Order) (*api.Proof, error)
}

// Attempt is a single purchase. It only moves forward; a failed attempt is
// retried by starting a new one.
type Attempt struct {
	ID     string
	Plan   entitlement.Plan
	UserID string

	mu      sync.Mutex
	state   State
	history []State
	order   *api.Order
	proof   *api.Proof
	result  *api.VerifyResponse
	err     *apperr.Error
	unlock  func()
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History lists every state the attempt has been in, oldest first.
func (a *Attempt) History() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]State(nil), a.history...)
}

func (a *Attempt) Order() *api.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order
}

func (a *Attempt) Result() *api.VerifyResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

func (a *Attempt) Err() *apperr.Error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Attempt) transition(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !canTransition(a.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, to)
	}
	a.state = to
	a.history = append(a.history, to)

	if to.Terminal() && a.unlock != nil {
		a.unlock()
		a.unlock = nil
	}
	return nil
}

type Orchestrator struct {
	backend Backend
	account Account
	locker  *locker.LocalLocker
}

func NewOrchestrator(backend Backend, account Account) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		account: account,
		locker:  locker.NewLocalLocker(),
	}
}

// Start opens an attempt for the signed-in user. Only one attempt per user
// may be open at a time.
func (o *Orchestrator) Start(ctx context.Context, planType string) (*Attempt, error) {
	plan, err := entitlement.LookupPlan(planType)
	if err != nil {
		return nil, err
	}

	user, err := o.account.CurrentUser(ctx)
	if err != nil {
		return nil, apperr.ErrNoToken.WithCause(err)
	}

	unlock, err := o.locker.TryLock("payment:" + user.ID)
	if errors.Is(err, locker.ErrLocked) {
		return nil, ErrPaymentInFlight
	}
	if err != nil {
		return nil, apperr.As(err)
	}

	a := &Attempt{
		ID:      uuid.New().String(),
		Plan:    plan,
		UserID:  user.ID,
		state:   StateIdle,
		history: []State{StateIdle},
		unlock:  unlock,
	}
	slog.Debug("payment attempt started", "attempt_id", a.ID, "user_id", user.ID, "plan", plan.Type)
	return a, nil
}

func (o *Orchestrator) CreateOrder(ctx context.Context, a *Attempt) error {
	if a.State() != StateIdle {
		return fmt.Errorf("%w: order already created", ErrIllegalTransition)
	}

	token, err := o.account.Token(ctx)
	if err != nil {
		return o.fail(a, err)
	}

	order, err := o.backend.CreateOrder(ctx, token, string(a.Plan.Type))
	if err != nil {
		return o.fail(a, err)
	}
	if order.Amount != a.Plan.MinorAmount() {
		return o.fail(a, apperr.New(apperr.KindVerification, "Order amount does not match the selected plan"))
	}

	a.mu.Lock()
	a.order = order
	a.mu.Unlock()

	return a.transition(StateOrderCreated)
}

// Collect hands the order to the checkout and waits for the user to pay.
func (o *Orchestrator) Collect(ctx context.Context, a *Attempt, checkout Checkout) error {
	err := a.transition(StateAwaitingUserPayment)
	if err != nil {
		return err
	}

	proof, err := checkout.Collect(ctx, *a.Order())
	if err != nil {
		return o.fail(a, err)
	}
	if proof == nil || proof.PaymentID == "" {
		return o.fail(a, apperr.New(apperr.KindVerification, "Checkout returned no payment"))
	}
	if proof.OrderID == "" {
		proof.OrderID = a.Order().ID
	}

	a.mu.Lock()
	a.proof = proof
	a.mu.Unlock()
	return nil
}

// Verify submits the collected proof. On success the session already holds
// the upgraded user.
func (o *Orchestrator) Verify(ctx context.Context, a *Attempt) error {
	a.mu.Lock()
	proof := a.proof
	a.mu.Unlock()
	if proof == nil {
		return fmt.Errorf("%w: no payment collected", ErrIllegalTransition)
	}

	err := a.transition(StateVerifying)
	if err != nil {
		return err
	}

	resp, err := o.account.UpgradeToPremium(ctx, api.VerifyRequest{
		Proof:    *proof,
		PlanType: string(a.Plan.Type),
		Amount:   a.Order().Amount,
	})
	if err != nil {
		return o.fail(a, err)
	}

	a.mu.Lock()
	a.result = resp
	a.mu.Unlock()

	slog.Info("payment verified", "attempt_id", a.ID, "user_id", a.UserID, "payment_id", proof.PaymentID, "replayed", resp.Replayed)
	return a.transition(StateSucceeded)
}

// Run takes a new attempt through every step.
func (o *Orchestrator) Run(ctx context.Context, planType string, checkout Checkout) (*Attempt, error) {
	a, err := o.Start(ctx, planType)
	if err != nil {
		return nil, err
	}

	err = o.CreateOrder(ctx, a)
	if err != nil {
		return a, err
	}

	err = o.Collect(ctx, a, checkout)
	if err != nil {
		return a, err
	}

	return a, o.Verify(ctx, a)
}

// Abandon fails a non-terminal attempt, for example when the caller gives up.
func (o *Orchestrator) Abandon(a *Attempt) {
	if a.State().Terminal() {
		return
	}
	_ = o.fail(a, apperr.ErrCancelled)
}

func (o *Orchestrator) fail(a *Attempt, err error) error {
	e := apperr.As(err)

	a.mu.Lock()
	a.err = e
	a.mu.Unlock()

	terr := a.transition(StateFailed)
	if terr != nil {
		slog.Warn("payment attempt could not fail cleanly", "attempt_id", a.ID, "error", terr)
	}
	slog.Info("payment attempt failed", "attempt_id", a.ID, "user_id", a.UserID, "kind", e.Kind, "error", err)
	return e
}
