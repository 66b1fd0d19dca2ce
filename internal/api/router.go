package api

import (
	"net/http"

	"github.com/dom/vidshare-backend/internal/api/handlers"
	"github.com/dom/vidshare-backend/internal/api/middleware"
	"github.com/dom/vidshare-backend/internal/config"
	"github.com/dom/vidshare-backend/internal/csrf"
	"github.com/dom/vidshare-backend/internal/logging"
	"github.com/dom/vidshare-backend/internal/obs"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/validation"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type RouterDeps struct {
	Config   *config.Config
	Services *service.Services
	CSRF     *csrf.Guard
	Metrics  *obs.Metrics
	Logger   zerolog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(logging.Middleware(deps.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(deps.Metrics.Instrument)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chiMiddleware.RequestSize(maxBodyBytes))
	r.Use(middleware.CSRF(deps.CSRF))
	r.Use(middleware.Authenticate(deps.Services.Auth, cfg.AccessCookieName))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// Initialize handlers
	validate := validation.New()
	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.PasswordReset, validate, handlers.CookieSettings{
		AccessName:  cfg.AccessCookieName,
		RefreshName: cfg.RefreshCookieName,
		Domain:      cfg.JWTCookieDomain,
		Secure:      cfg.JWTCookieSecure,
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
	})
	csrfHandler := handlers.NewCSRFHandler()
	channelHandler := handlers.NewChannelHandler(deps.Services.Channel)

	r.Get("/csrf-token", csrfHandler.Token)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.AuthRatePerSecond, cfg.AuthRateBurst))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		// Protected auth routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/user", authHandler.User)
			r.Post("/update-profile", authHandler.UpdateProfile)
			r.Post("/update-password", authHandler.UpdatePassword)
		})
	})

	r.Route("/channels", func(r chi.Router) {
		r.Get("/{username}", channelHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/{id}/subscribe", channelHandler.Subscribe)
			r.Post("/{id}/unsubscribe", channelHandler.Unsubscribe)
		})
	})

	return r
}
