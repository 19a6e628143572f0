package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/metrics"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/repository"
	"github.com/stumpscore/stumpscore/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyExists = apperr.New(apperr.KindDuplicate, "User already exists with this email")
	ErrInvalidGoogleUser  = apperr.New(apperr.KindValidation, "Invalid Google user data")
	ErrGoogleMismatch     = apperr.New(apperr.KindAuth, "This email is linked to a different Google account")
)

type AuthService struct {
	userRepository repository.UserRepository
	mailer         Mailer
	google         GoogleVerifier
	jwtSecret      string
	jwtExpiry      time.Duration
	now            func() time.Time
}

func NewAuthService(
	userRepository repository.UserRepository,
	mailer Mailer,
	google GoogleVerifier,
	jwtSecret string,
	jwtExpiry time.Duration,
	now func() time.Time,
) *AuthService {
	if google == nil {
		google = unavailableGoogle{}
	}
	return &AuthService{
		userRepository: userRepository,
		mailer:         mailer,
		google:         google,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
		now:            now,
	}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = validation.NormalizeEmail(email)

	err := validateRegistration(name, email, password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "invalid").Inc()
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userRepository.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		metrics.AuthAttempts.WithLabelValues("register", "duplicate").Inc()
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("register", "ok").Inc()
	slog.Info("user registered", "user_id", user.ID, "email", user.Email)

	err = s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name)
	if err != nil {
		slog.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Federated accounts carry a sentinel that never matches a bcrypt hash
	if !user.HasPassword() || s.ComparePassword(password, user.PasswordHash) != nil {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, apperr.ErrInvalidCredentials
	}

	s.touchLastLogin(ctx, user)
	metrics.AuthAttempts.WithLabelValues("password", "ok").Inc()

	return user, nil
}

// GoogleSignIn redeems a Google authorization code and signs in the account
// for the identity Google reports. Nothing the caller sends is taken as the
// identity itself.
func (s *AuthService) GoogleSignIn(ctx context.Context, cred GoogleCredential) (*model.User, error) {
	if strings.TrimSpace(cred.Code) == "" {
		metrics.AuthAttempts.WithLabelValues("google", "invalid").Inc()
		return nil, ErrGoogleCredentialRequired
	}

	id, err := s.google.Redeem(ctx, cred)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "rejected").Inc()
		return nil, err
	}

	return s.signInGoogle(ctx, *id)
}

// signInGoogle finds the account for a verified Google identity, linking or
// creating it as needed.
func (s *AuthService) signInGoogle(ctx context.Context, id GoogleIdentity) (*model.User, error) {
	email := validation.NormalizeEmail(id.Email)
	if id.GoogleID == "" || validation.ValidateEmail(email) != nil {
		metrics.AuthAttempts.WithLabelValues("google", "invalid").Inc()
		return nil, ErrInvalidGoogleUser
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	now := s.now()

	if user == nil {
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name = strings.Split(email, "@")[0]
		}

		user = &model.User{
			ID:             uuid.New().String(),
			Name:           name,
			Email:          email,
			PasswordHash:   model.GooglePasswordSentinel,
			GoogleID:       &id.GoogleID,
			ProfilePicture: optional(id.ProfilePicture),
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		err = s.userRepository.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		slog.Info("new google user created", "user_id", user.ID, "email", email)
		metrics.AuthAttempts.WithLabelValues("google", "created").Inc()
		return user, nil
	}

	if user.GoogleID != nil && *user.GoogleID != id.GoogleID {
		metrics.AuthAttempts.WithLabelValues("google", "mismatch").Inc()
		slog.Warn("google identity does not match linked account", "user_id", user.ID)
		return nil, ErrGoogleMismatch
	}

	if user.GoogleID == nil {
		user.GoogleID = &id.GoogleID
		if user.ProfilePicture == nil {
			user.ProfilePicture = optional(id.ProfilePicture)
		}
		user.UpdatedAt = now

		err = s.userRepository.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		slog.Info("google account linked", "user_id", user.ID)
	}

	s.touchLastLogin(ctx, user)
	metrics.AuthAttempts.WithLabelValues("google", "ok").Inc()

	return user, nil
}

// Authenticate resolves a bearer token to its user. Any failure, including a
// user that no longer exists, is reported as ErrVerificationFailed.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.VerifyJWT(token)
	if err != nil {
		return nil, apperr.ErrVerificationFailed.WithCause(err)
	}

	user, err := s.userRepository.ByID(ctx, claims.ID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.ErrVerificationFailed.WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}

	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	now := s.now()
	claims := model.TokenClaims{
		ID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

func (s *AuthService) touchLastLogin(ctx context.Context, user *model.User) {
	now := s.now()
	err := s.userRepository.TouchLastLogin(ctx, user.ID, now)
	if err != nil {
		slog.Warn("failed to update last login", "user_id", user.ID, "error", err)
		return
	}
	user.LastLoginAt = &now
}

func validateRegistration(name, email, password string) error {
	for _, err := range []error{
		validation.ValidateName(name),
		validation.ValidateEmail(email),
		validation.ValidatePassword(password),
	} {
		if err != nil {
			return apperr.Wrap(apperr.KindValidation, capitalize(err.Error()), err)
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
