// Package main is the entrypoint for the gateway API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/tpln/gateway/internal/auth"
	"github.com/tpln/gateway/internal/billing"
	"github.com/tpln/gateway/internal/cache"
	"github.com/tpln/gateway/internal/config"
	"github.com/tpln/gateway/internal/handler"
	"github.com/tpln/gateway/internal/identity"
	"github.com/tpln/gateway/internal/metrics"
	"github.com/tpln/gateway/internal/middleware"
	"github.com/tpln/gateway/internal/notify"
	"github.com/tpln/gateway/internal/purge"
	"github.com/tpln/gateway/internal/repository"
	"github.com/tpln/gateway/internal/server"
	"github.com/tpln/gateway/internal/service"
	"github.com/tpln/gateway/internal/streamchat"
)

// localLimiterIdleTTL drops in-process rate limit state for quiet clients.
const localLimiterIdleTTL = 10 * time.Minute

func main() {
	ctx := context.Background()

	if err := config.LoadDotenv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	recorder := metrics.NewPrometheus()

	srv := server.New(nil, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Database (optional)
	var repo *repository.Repository
	if cfg.DatabaseURL != "" {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		srv.OnShutdown("postgres", func(context.Context) error {
			repo.Close()
			return nil
		})
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set, subscriptions are not persisted")
	}

	// Cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, using in-process rate limiting and no webhook dedup")
	}

	minter, err := newMinter(cfg)
	if err != nil {
		logger.Error("failed to initialize chat client", "error", err)
		os.Exit(1)
	}
	tokenService := service.NewTokenService(minter, recorder, logger)

	deps := service.AccountDeps{
		Prices:  cfg.PriceID,
		SiteURL: cfg.SiteURL,
		Metrics: recorder,
		Logger:  logger,
	}

	if payments, err := billing.NewStripe(cfg.StripeKey(), cfg.StripeWebhookSecret); err == nil {
		deps.Payments = payments
		if cfg.StripeWebhookSecret == "" {
			logger.Warn("STRIPE_WEBHOOK_SECRET not set, webhooks will be rejected")
		}
	} else {
		logger.Warn("payments provider disabled", "error", err)
	}

	identityClient, err := identity.New(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, nil)
	switch {
	case err == nil:
		deps.Users = identityClient
	case errors.Is(err, identity.ErrNotConfigured):
		logger.Warn("auth provider disabled")
	default:
		logger.Error("failed to initialize auth provider", "error", err)
		os.Exit(1)
	}

	if mailer, err := notify.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom); err == nil {
		deps.Mailer = mailer
	} else {
		logger.Warn("SendGrid disabled, welcome emails are only logged")
		deps.Mailer = notify.NewLogMailer(logger)
	}

	// Assigned only when set: a nil pointer in an interface is not a nil interface.
	var limiter middleware.IPRateLimiter = cache.NewLocalLimiter(localLimiterIdleTTL)
	var tableStore purge.Store
	if repo != nil {
		deps.Subscriptions = repo
		tableStore = purge.NewTableStore(repo)
	}
	if cacheClient != nil {
		deps.Events = cacheClient
		limiter = cacheClient
	}

	accountService := service.NewAccountService(deps)

	var realtimeStore purge.Store
	if cfg.FirebaseDatabaseURL != "" {
		fs, err := purge.NewFirebaseStore(ctx, cfg.FirebaseDatabaseURL, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("failed to initialize realtime database", "error", err)
			os.Exit(1)
		}
		realtimeStore = fs
	}

	verifier, err := auth.NewVerifier(cfg.GetAdminKeyHashes())
	if err != nil {
		logger.Error("invalid ADMIN_API_KEY_HASHES", "error", err)
		os.Exit(1)
	}
	if !verifier.Configured() {
		logger.Warn("ADMIN_API_KEY_HASHES not set, admin API disabled")
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.GetTrustedProxies())
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	var dbCheck, cacheCheck, identityCheck handler.HealthChecker
	if repo != nil {
		dbCheck = repo
	}
	if cacheClient != nil {
		cacheCheck = cacheClient
	}
	if identityClient != nil {
		identityCheck = identityClient
	}

	expose := cfg.IsDevelopment()
	r := setupRouter(routes{
		root:     handler.New(),
		health:   handler.NewHealthHandler(dbCheck, cacheCheck, identityCheck),
		metrics:  handler.NewMetricsHandler(recorder.Handler()),
		tokens:   handler.NewTokenHandler(tokenService, logger, expose),
		accounts: handler.NewAccountHandler(accountService, logger, expose),
		admin:    handler.NewAdminHandler(realtimeStore, tableStore, recorder, logger),
	}, routerConfig{
		Logger:         logger,
		Verifier:       verifier,
		Limiter:        limiter,
		TrustedProxies: trustedProxies,
		RateLimit:      cfg.RateLimitEnabled,
		RateRPS:        cfg.RateLimitRPS,
		RateBurst:      cfg.RateLimitBurst,
		CORSOrigins:    cfg.GetCORSAllowedOrigins(),
		IsDevelopment:  cfg.IsDevelopment(),
		MaxBodySize:    cfg.MaxRequestBodySize,
	})
	srv.SetHandler(r)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"token_mode", minter.Variant(),
		"payments", deps.Payments != nil,
		"auth_provider", deps.Users != nil,
		"admin_api", verifier.Configured(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newMinter returns the live chat client, or the simulated minter in mock mode.
func newMinter(cfg *config.Config) (streamchat.Minter, error) {
	if cfg.IsMockTokenMode() {
		return streamchat.NewMock(cfg.StreamAPIKey, time.Now), nil
	}
	var opts []streamchat.Option
	if cfg.StreamTokenTTL > 0 {
		opts = append(opts, streamchat.WithTTL(cfg.StreamTokenTTL))
	}
	return streamchat.New(cfg.StreamAPIKey, cfg.StreamAPISecret, opts...)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
