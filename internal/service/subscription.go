package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/repository"
)

type SubscriptionService struct {
	users    *UserService
	payments repository.PaymentRepository
	now      func() time.Time
}

func NewSubscriptionService(users *UserService, payments repository.PaymentRepository, now func() time.Time) *SubscriptionService {
	return &SubscriptionService{
		users:    users,
		payments: payments,
		now:      now,
	}
}

// Status reports the stored entitlement, whether it is active right now, and
// the user's payment history.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*model.Subscription, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.Subscription{
		IsPremium:      user.IsPremium,
		PremiumUntil:   user.PremiumUntil,
		Active:         user.IsPremiumAt(s.now()),
		PaymentHistory: history,
	}, nil
}

func (s *SubscriptionService) History(ctx context.Context, userID string) ([]model.PaymentRecord, error) {
	history, err := s.payments.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment history: %w", err)
	}
	return history, nil
}
