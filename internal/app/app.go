package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stumpscore/stumpscore/internal/cache"
	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/db"
	"github.com/stumpscore/stumpscore/internal/locker"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/repository"
	"github.com/stumpscore/stumpscore/internal/service"
	"github.com/stumpscore/stumpscore/internal/service/payment"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Redis               *redis.Client
	Now                 func() time.Time
	AuthService         *service.AuthService
	UserService         *service.UserService
	EmailService        *service.EmailService
	SubscriptionService *service.SubscriptionService
	PaymentService      *service.PaymentService
	MatchService        *service.MatchService
}

// Deps are the externally provided collaborators of an App.
type Deps struct {
	DB       *sqlx.DB
	Redis    *redis.Client
	Provider payment.Provider
	Locker   locker.Locker
	Google   service.GoogleVerifier
	Now      func() time.Time
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	paymentProvider, err := payment.NewProvider(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize payment provider: %w", err)
	}

	deps := Deps{
		DB:       database,
		Provider: paymentProvider,
		Locker:   locker.NewLocalLocker(),
		Google:   service.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret),
		Now:      time.Now,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}

		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err = client.Ping(ctx).Err()
		if err != nil {
			_ = client.Close()
			_ = database.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		deps.Redis = client
		deps.Locker = locker.NewRedisLocker(client, "stumpscore:lock:", cfg.LockTTL)
		slog.Info("using redis locker", "ttl", cfg.LockTTL)
	} else {
		slog.Info("REDIS_URL not set, using in-process locker")
	}

	return Assemble(cfg, deps), nil
}

// Assemble wires services on top of already constructed dependencies.
func Assemble(cfg *config.Config, deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	// Repositories
	userRepository := repository.NewUserRepository(deps.DB)
	paymentRepository := repository.NewPaymentRepository(deps.DB)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	google := deps.Google
	if google == nil {
		google = service.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret)
	}
	authService := service.NewAuthService(userRepository, emailService, google, cfg.JWTSecret, cfg.JWTExpiry, now)
	userService := service.NewUserService(userRepository, now)
	subscriptionService := service.NewSubscriptionService(userService, paymentRepository, now)
	paymentService := service.NewPaymentService(
		deps.Provider,
		paymentRepository,
		deps.Locker,
		emailService,
		cfg.PaymentCurrency,
		now,
	)
	matchCache := cache.New[[]model.Match](cfg.MatchCacheTTL).WithClock(now)
	matchService := service.NewMatchService(service.ClockSource{Now: now}, matchCache)

	return &App{
		Cfg:                 cfg,
		DB:                  deps.DB,
		Redis:               deps.Redis,
		Now:                 now,
		AuthService:         authService,
		UserService:         userService,
		EmailService:        emailService,
		SubscriptionService: subscriptionService,
		PaymentService:      paymentService,
		MatchService:        matchService,
	}
}

func (a *App) Close() error {
	if a.Redis != nil {
		err := a.Redis.Close()
		if err != nil {
			slog.Warn("failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
