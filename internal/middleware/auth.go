package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tpln/gateway/internal/auth"
)

// minAuthFailureDuration pads rejected requests so failures take the same time.
const minAuthFailureDuration = 200 * time.Millisecond

// AdminAuthConfig holds configuration for the admin auth middleware.
type AdminAuthConfig struct {
	Logger   *slog.Logger
	Verifier *auth.Verifier
	// MinFailureDuration overrides minAuthFailureDuration; tests set it to a small value.
	MinFailureDuration time.Duration
}

// AdminAuth returns a middleware that requires a valid admin key in
// "Authorization: Bearer <key>" or "X-API-Key: <key>".
// When no key hashes are configured every request is rejected with 503.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	pad := cfg.MinFailureDuration
	if pad == 0 {
		pad = minAuthFailureDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Verifier.Configured() {
				writeError(w, http.StatusServiceUnavailable, "ADMIN_DISABLED", "Admin API is not configured")
				return
			}

			start := time.Now()
			fail := func(reason string) {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", ClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if elapsed := time.Since(start); elapsed < pad {
					time.Sleep(pad - elapsed)
				}
				writeAuthError(w)
			}

			key := extractAPIKey(r)
			if key == "" {
				fail("missing_key")
				return
			}

			admin, err := cfg.Verifier.Verify(key)
			switch {
			case errors.Is(err, auth.ErrInvalidKeyFormat):
				fail("invalid_format")
				return
			case err != nil:
				fail("invalid_key")
				return
			}

			cfg.Logger.Info("authentication successful",
				slog.String("key_prefix", admin.KeyPrefix),
				slog.String("env", admin.Env),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			recordAdmin(r.Context(), admin)
			ctx := auth.ContextWithAdmin(r.Context(), admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey reads the key from "Authorization: Bearer <key>", then "X-API-Key".
func extractAPIKey(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// writeAuthError writes a 401 with the same message for every failure.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
}
