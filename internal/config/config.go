// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Token minting modes.
const (
	TokenModeLive = "live"
	TokenModeMock = "mock"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3001"`

	// Database (PostgreSQL). Optional: billing persistence and table purge need it.
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis). Optional: rate limiting falls back to an in-process limiter.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Chat platform
	StreamAPIKey    string        `env:"STREAM_API_KEY"`
	StreamAPISecret string        `env:"STREAM_API_SECRET"`
	StreamTokenMode string        `env:"STREAM_TOKEN_MODE" envDefault:"live"`
	StreamTokenTTL  time.Duration `env:"STREAM_TOKEN_TTL" envDefault:"0s"`

	// Payments provider
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeSK            string `env:"STRIPE_SK"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PriceBasicMonthly   string `env:"STRIPE_PRICE_ID_BASIC_MONTHLY"`
	PriceBasicYearly    string `env:"STRIPE_PRICE_ID_BASIC_YEARLY"`
	PricePremiumMonthly string `env:"STRIPE_PRICE_ID_PREMIUM_MONTHLY"`
	PricePremiumYearly  string `env:"STRIPE_PRICE_ID_PREMIUM_YEARLY"`
	PriceJournalMonthly string `env:"STRIPE_PRICE_ID_JOURNAL_MONTHLY"`
	PriceJournalYearly  string `env:"STRIPE_PRICE_ID_JOURNAL_YEARLY"`

	// Public site origin used when a checkout request carries no Origin/Referer.
	SiteURL string `env:"SITE_URL" envDefault:"https://tradingpourlesnuls.com"`

	// Auth provider (admin API)
	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// Transactional email
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@tradingpourlesnuls.com"`

	// Realtime database
	FirebaseDatabaseURL     string `env:"FIREBASE_DATABASE_URL"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	// Comma-separated argon2id hashes of admin API keys (see `opsctl keygen`).
	AdminAPIKeyHashes string `env:"ADMIN_API_KEY_HASHES"`

	// Rate limiting for token endpoints (per client IP)
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Comma-separated CIDRs or addresses of reverse proxies whose X-Forwarded-For is
	// trusted. Empty means the peer address is the client address.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	// CORS configuration
	// Comma-separated list of allowed origins, or "*" to allow any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsMockTokenMode reports whether chat tokens are simulated instead of signed.
func (c *Config) IsMockTokenMode() bool {
	return strings.EqualFold(c.StreamTokenMode, TokenModeMock)
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetAdminKeyHashes parses the comma-separated admin key hashes.
func (c *Config) GetAdminKeyHashes() []string {
	return splitList(c.AdminAPIKeyHashes)
}

// GetTrustedProxies parses the comma-separated trusted proxy list.
func (c *Config) GetTrustedProxies() []string {
	return splitList(c.TrustedProxies)
}

// StripeKey returns the payments secret key, preferring STRIPE_SECRET_KEY over STRIPE_SK.
// Returns an empty string when no key is set or the key is not a secret key.
func (c *Config) StripeKey() string {
	key := c.StripeSecretKey
	if key == "" {
		key = c.StripeSK
	}
	if !strings.HasPrefix(key, "sk_") {
		return ""
	}
	return key
}

// PriceID returns the configured price for a plan and billing cycle, or "".
func (c *Config) PriceID(plan, cycle string) string {
	prices := map[string]map[string]string{
		"basic": {
			"monthly": c.PriceBasicMonthly,
			"yearly":  c.PriceBasicYearly,
		},
		"premium": {
			"monthly": c.PricePremiumMonthly,
			"yearly":  c.PricePremiumYearly,
		},
		"journal": {
			"monthly": c.PriceJournalMonthly,
			"yearly":  c.PriceJournalYearly,
		},
	}
	return prices[plan][cycle]
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.StreamTokenMode) {
	case TokenModeLive:
		if c.StreamAPIKey == "" || c.StreamAPISecret == "" {
			return errors.New("STREAM_API_KEY and STREAM_API_SECRET are required in live token mode")
		}
	case TokenModeMock:
		if c.IsProduction() {
			return errors.New("STREAM_TOKEN_MODE=mock is not allowed when APP_ENV=production")
		}
	default:
		return fmt.Errorf("invalid STREAM_TOKEN_MODE %q (want live or mock)", c.StreamTokenMode)
	}
	if c.StreamTokenTTL < 0 {
		return errors.New("STREAM_TOKEN_TTL must not be negative")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDotenv loads variables from the given .env files into the process environment.
// Variables already set are not overridden and missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
