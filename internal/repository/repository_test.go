package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/db/dbtest"
	"github.com/stumpscore/stumpscore/internal/model"
)

func newUser(email string) *model.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(dbtest.New(t))

	u := newUser("a@x.com")
	require.NoError(t, repo.Create(ctx, u))

	byEmail, err := repo.ByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.False(t, byEmail.IsPremium)
	require.Nil(t, byEmail.PremiumUntil)

	byID, err := repo.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Test User", byID.Name)

	_, err = repo.ByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.ByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(dbtest.New(t))

	require.NoError(t, repo.Create(ctx, newUser("dup@x.com")))
	require.ErrorIs(t, repo.Create(ctx, newUser("dup@x.com")), ErrDuplicateEmail)

	other := newUser("other@x.com")
	require.NoError(t, repo.Create(ctx, other))
	other.Email = "dup@x.com"
	require.ErrorIs(t, repo.Update(ctx, other), ErrDuplicateEmail)
}

func TestUserRepositoryUpdateLeavesEntitlement(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := NewUserRepository(database)

	u := newUser("keep@x.com")
	require.NoError(t, repo.Create(ctx, u))

	until := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	_, err := database.Exec(`UPDATE users SET is_premium = $1, premium_until = $2 WHERE id = $3`, true, until, u.ID)
	require.NoError(t, err)

	// stale copy with IsPremium=false must not downgrade
	u.Name = "Renamed"
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.True(t, got.IsPremium)
	require.NotNil(t, got.PremiumUntil)
}

func TestTouchLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(dbtest.New(t))

	u := newUser("login@x.com")
	require.NoError(t, repo.Create(ctx, u))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.TouchLastLogin(ctx, u.ID, at))

	got, err := repo.ByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	require.True(t, at.Equal(*got.LastLoginAt))

	require.ErrorIs(t, repo.TouchLastLogin(ctx, "missing", at), ErrUserNotFound)
}

func seedOrder(t *testing.T, repo PaymentRepository, userID, id string) {
	t.Helper()
	require.NoError(t, repo.CreateOrder(context.Background(), &model.Order{
		ID:        id,
		UserID:    userID,
		PlanType:  "monthly",
		Amount:    5000,
		Currency:  "INR",
		Provider:  model.ProviderRazorpay,
		Status:    model.OrderStatusCreated,
		CreatedAt: time.Now().UTC(),
	}))
}

func grantFor(userID, orderID, paymentID string, at time.Time) Grant {
	return Grant{
		Record: model.PaymentRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			OrderID:   orderID,
			PaymentID: paymentID,
			PlanType:  "monthly",
			Amount:    50,
			Currency:  "INR",
			Provider:  model.ProviderRazorpay,
			CreatedAt: at,
		},
		PremiumUntil: at.AddDate(0, 1, 0),
		At:           at,
	}
}

func TestGrantPremium(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("pay@x.com")
	require.NoError(t, users.Create(ctx, u))
	seedOrder(t, payments, u.ID, "order_1")

	at := time.Now().UTC().Truncate(time.Second)
	updated, replayed, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_1", at))
	require.NoError(t, err)
	require.False(t, replayed)
	require.True(t, updated.IsPremium)
	require.NotNil(t, updated.PremiumUntil)
	require.True(t, at.AddDate(0, 1, 0).Equal(*updated.PremiumUntil))

	order, err := payments.OrderByID(ctx, "order_1")
	require.NoError(t, err)
	require.True(t, order.IsPaid())
	require.NotNil(t, order.PaidAt)

	history, err := payments.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "pay_1", history[0].PaymentID)
}

func TestGrantPremiumReplayIsNoop(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("replay@x.com")
	require.NoError(t, users.Create(ctx, u))
	seedOrder(t, payments, u.ID, "order_1")

	first := time.Now().UTC().Truncate(time.Second)
	_, _, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_1", first))
	require.NoError(t, err)

	later := first.Add(48 * time.Hour)
	updated, replayed, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_1", later))
	require.NoError(t, err)
	require.True(t, replayed)
	require.True(t, first.AddDate(0, 1, 0).Equal(*updated.PremiumUntil))

	history, err := payments.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestGrantPremiumRejectsPaymentOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	a := newUser("a@x.com")
	b := newUser("b@x.com")
	require.NoError(t, users.Create(ctx, a))
	require.NoError(t, users.Create(ctx, b))
	seedOrder(t, payments, a.ID, "order_a")

	at := time.Now().UTC()
	_, _, err := payments.GrantPremium(ctx, grantFor(a.ID, "order_a", "pay_1", at))
	require.NoError(t, err)

	_, _, err = payments.GrantPremium(ctx, grantFor(b.ID, "order_a", "pay_1", at))
	require.ErrorIs(t, err, ErrPaymentClaimed)

	got, err := users.ByID(ctx, b.ID)
	require.NoError(t, err)
	require.False(t, got.IsPremium)
}

func TestGrantPremiumRejectsSecondPaymentForOrder(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("twice@x.com")
	require.NoError(t, users.Create(ctx, u))
	seedOrder(t, payments, u.ID, "order_1")

	at := time.Now().UTC().Truncate(time.Second)
	_, _, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_1", at))
	require.NoError(t, err)

	_, _, err = payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_2", at.Add(time.Hour)))
	require.ErrorIs(t, err, ErrOrderPaid)

	_, _, err = payments.GrantPremium(ctx, grantFor(u.ID, "order_missing", "pay_3", at))
	require.ErrorIs(t, err, ErrOrderNotFound)

	history, err := payments.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "pay_1", history[0].PaymentID)
}

func TestGrantPremiumNeverShortensEntitlement(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("long@x.com")
	require.NoError(t, users.Create(ctx, u))
	seedOrder(t, payments, u.ID, "order_year")
	seedOrder(t, payments, u.ID, "order_month")

	at := time.Now().UTC().Truncate(time.Second)
	year := grantFor(u.ID, "order_year", "pay_year", at)
	year.PremiumUntil = at.AddDate(1, 0, 0)
	_, _, err := payments.GrantPremium(ctx, year)
	require.NoError(t, err)

	updated, _, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_month", "pay_month", at.Add(time.Hour)))
	require.NoError(t, err)
	require.True(t, at.AddDate(1, 0, 0).Equal(*updated.PremiumUntil))
}

func TestGrantPremiumConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("race@x.com")
	require.NoError(t, users.Create(ctx, u))
	seedOrder(t, payments, u.ID, "order_1")

	at := time.Now().UTC()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := payments.GrantPremium(ctx, grantFor(u.ID, "order_1", "pay_same", at))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := payments.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestHistoryIsChronological(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := NewUserRepository(database)
	payments := NewPaymentRepository(database)

	u := newUser("hist@x.com")
	require.NoError(t, users.Create(ctx, u))

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		orderID := fmt.Sprintf("order_%d", i)
		seedOrder(t, payments, u.ID, orderID)
		_, _, err := payments.GrantPremium(ctx, grantFor(u.ID, orderID, fmt.Sprintf("pay_%d", i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	history, err := payments.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, rec := range history {
		require.Equal(t, fmt.Sprintf("pay_%d", i), rec.PaymentID)
	}

	empty, err := payments.History(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestOrderByIDNotFound(t *testing.T) {
	_, err := NewPaymentRepository(dbtest.New(t)).OrderByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrOrderNotFound)
}
