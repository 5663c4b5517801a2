package main

import (
	"log/slog"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/tpln/gateway/internal/auth"
	"github.com/tpln/gateway/internal/handler"
	"github.com/tpln/gateway/internal/middleware"
)

// accountPrefixes serve the account functions under both the API path and the
// serverless function path older clients still call.
var accountPrefixes = []string{"/api", "/.netlify/functions"}

type routes struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	tokens   *handler.TokenHandler
	accounts *handler.AccountHandler
	admin    *handler.AdminHandler
}

type routerConfig struct {
	Logger         *slog.Logger
	Verifier       *auth.Verifier
	Limiter        middleware.IPRateLimiter
	TrustedProxies []netip.Prefix
	RateLimit      bool
	RateRPS        int
	RateBurst      int
	CORSOrigins    []string
	IsDevelopment  bool
	MaxBodySize    int64
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h routes, cfg routerConfig) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins

	// Global middleware
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxBodySize))

	// Health and metrics
	r.Get("/health", h.health.Health)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	r.Get("/", h.root.Hello)

	// Chat tokens, rate limited per client IP
	rateLimited := r.With(middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Enabled: cfg.RateLimit,
		RPS:     cfg.RateRPS,
		Burst:   cfg.RateBurst,
	}))
	rateLimited.Get("/get-token", h.tokens.GetToken)
	rateLimited.Post("/api/generate-token", h.tokens.GenerateToken)
	rateLimited.Post("/api/stream-token", h.tokens.StreamToken)
	r.Get("/test", h.tokens.Info)
	r.Get("/api/test", h.tokens.Info)
	r.Get("/api/stream-token/test", h.tokens.Info)

	// Account functions
	for _, prefix := range accountPrefixes {
		rateLimited.Get(prefix+"/get-checkout-email", h.accounts.CheckoutEmail)
		rateLimited.Post(prefix+"/setup-password", h.accounts.SetupPassword)
		rateLimited.Post(prefix+"/create-checkout-session", h.accounts.CreateCheckoutSession)
		r.Post(prefix+"/stripe-webhook", h.accounts.StripeWebhook)
	}
	rateLimited.Get("/api/checkout-email", h.accounts.CheckoutEmail)

	// Admin maintenance
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(middleware.AdminAuthConfig{
			Logger:   cfg.Logger,
			Verifier: cfg.Verifier,
		}))
		r.Post("/purge/firebase", h.admin.PurgeRealtime)
		r.Post("/purge/trades", h.admin.PurgeTables)
	})

	// 404 and 405 handlers
	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}
