package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName    string
	AppEnv     string
	AppURL     string
	Port       string
	CORSOrigin string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret      string
	JWTExpiry      time.Duration
	AuthRateLimit  int // requests per AuthRateWindow per IP on credential endpoints
	AuthRateWindow time.Duration

	// Google sign-in (optional; without both values /api/users/google is unavailable)
	GoogleClientID     string
	GoogleClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Payment
	PaymentProvider string // "razorpay", "stripe" or "polar"
	PaymentCurrency string
	// Payment - Razorpay
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	// Payment - Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	// Payment - Polar
	PolarAPIKey           string
	PolarWebhookSecret    string
	PolarSandboxMode      bool
	PolarProductIDMonthly string
	PolarProductIDAnnual  string

	// Coordination (optional; without redis the lock is process-local)
	RedisURL string
	LockTTL  time.Duration

	// Match feed
	MatchCacheTTL time.Duration

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:    envString("APP_NAME", "StumpScore"),
		AppEnv:     envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:     envString("APP_URL", "http://localhost:5000"),
		Port:       envString("PORT", "5000"),
		CORSOrigin: envString("CORS_ORIGIN", "*"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/stumpscore.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret:      envRequired("JWT_SECRET"),
		JWTExpiry:      envDuration("JWT_EXPIRY", 720*time.Hour), // 30 days
		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: envDuration("AUTH_RATE_WINDOW", 15*time.Minute),

		// Google sign-in
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@stumpscore.app"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Payment
		PaymentProvider:       envString("PAYMENT_PROVIDER", "razorpay"),
		PaymentCurrency:       envString("PAYMENT_CURRENCY", "INR"),
		RazorpayKeyID:         envString("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     envString("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: envString("RAZORPAY_WEBHOOK_SECRET", ""),
		StripeSecretKey:       envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   envString("STRIPE_WEBHOOK_SECRET", ""),
		PolarAPIKey:           envString("POLAR_API_KEY", ""),
		PolarWebhookSecret:    envString("POLAR_WEBHOOK_SECRET", ""),
		PolarSandboxMode:      envBool("POLAR_SANDBOX_MODE", envString("APP_ENV", "development") == "development"),
		PolarProductIDMonthly: envString("POLAR_PRODUCT_ID_MONTHLY", ""),
		PolarProductIDAnnual:  envString("POLAR_PRODUCT_ID_ANNUAL", ""),

		// Coordination
		RedisURL: envString("REDIS_URL", ""),
		LockTTL:  envDuration("LOCK_TTL", 10*time.Second),

		// Match feed
		MatchCacheTTL: envDuration("MATCH_CACHE_TTL", 5*time.Minute),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows email to run in log mode for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if len(cfg.JWTSecret) < 32 {
		slog.Error("production deployment requires JWT_SECRET of at least 32 bytes")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
