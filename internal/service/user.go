package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/repository"
	"github.com/stumpscore/stumpscore/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = apperr.New(apperr.KindNotFound, "User not found")

// ProfileUpdate carries the fields a user may change. Nil fields are left as is.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type UserService struct {
	userRepository repository.UserRepository
	now            func() time.Time
}

func NewUserService(userRepository repository.UserRepository, now func() time.Time) *UserService {
	return &UserService{
		userRepository: userRepository,
		now:            now,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		err = validation.ValidateName(name)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, capitalize(err.Error()), err)
		}
		user.Name = name
	}

	if upd.Email != nil {
		email := validation.NormalizeEmail(*upd.Email)
		err = validation.ValidateEmail(email)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, capitalize(err.Error()), err)
		}
		user.Email = email
	}

	if upd.Password != nil && *upd.Password != "" {
		err = validation.ValidatePassword(*upd.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, capitalize(err.Error()), err)
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashedPassword)
	}

	user.UpdatedAt = s.now()

	err = s.userRepository.Update(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", "user_id", user.ID)
	return user, nil
}
