package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/app"
	"github.com/stumpscore/stumpscore/internal/handler"
	"github.com/stumpscore/stumpscore/internal/middleware"
	"github.com/stumpscore/stumpscore/internal/respond"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	profile := handler.NewProfileHandler(app.AuthService, app.UserService, app.SubscriptionService)
	payments := handler.NewPaymentHandler(app.PaymentService, app.SubscriptionService)
	matches := handler.NewMatchHandler(app.MatchService)
	health := handler.NewHealthHandler(app.DB)

	requireBearer := middleware.RequireBearer(app.AuthService)
	requirePremium := middleware.RequirePremium(app.Now)
	rateLimiter := middleware.RateLimitAuth(app.Cfg.AuthRateLimit, app.Cfg.AuthRateWindow)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging)

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	r.Get("/health", health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/matches/live", matches.Live)

	// Credentials (rate limited)
	r.With(rateLimiter).Post("/api/users/register", auth.Register)
	r.With(rateLimiter).Post("/api/users/login", auth.Login)
	r.With(rateLimiter).Post("/api/users/google", auth.Google)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	r.Group(func(r chi.Router) {
		r.Use(requireBearer)

		r.Post("/api/users/logout", auth.Logout)
		r.Get("/api/users/profile", profile.Profile)
		r.Put("/api/users/profile", profile.UpdateProfile)
		r.Get("/api/users/subscription", profile.Subscription)

		r.Post("/api/payments/create-order", payments.CreateOrder)
		r.Post("/api/payments/verify", payments.Verify)
		r.Get("/api/payments/history", payments.History)

		r.With(requirePremium).Get("/api/matches/predictions", matches.Predictions)
	})

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	// Signed by the configured payment provider
	r.Post("/webhooks/payment", payments.Webhook)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.New(apperr.KindNotFound, "Route not found"))
	})

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		r,
		middleware.SecurityHeaders,
		middleware.CORS(app.Cfg.CORSOrigin),
	)
}
