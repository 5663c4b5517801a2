package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tpln/gateway/internal/auth"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Logger returns a middleware that logs one structured line per request.
// Query strings and headers are never logged: they carry user ids and keys.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := wrapResponseWriter(w)

			// Auth runs deeper in the chain; it reports the key prefix through this holder.
			holder := &adminHolder{}
			r = r.WithContext(withAdminHolder(r.Context(), holder))

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", wrapped.status),
				slog.Int("bytes", wrapped.bytes),
				slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
				slog.String("client_ip", ClientIP(r)),
				slog.String("user_agent", r.UserAgent()),
			}

			if traceID := GetTraceID(r.Context()); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if holder.admin != nil {
				attrs = append(attrs, slog.String("key_prefix", holder.admin.KeyPrefix))
			}

			level := slog.LevelInfo
			if wrapped.status >= 500 {
				level = slog.LevelError
			} else if wrapped.status >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

type adminHolder struct {
	admin *auth.Admin
}

const adminHolderKey contextKey = "admin_holder"

func withAdminHolder(ctx context.Context, h *adminHolder) context.Context {
	return context.WithValue(ctx, adminHolderKey, h)
}

// recordAdmin makes the authenticated admin visible to the request logger.
func recordAdmin(ctx context.Context, admin *auth.Admin) {
	if h, ok := ctx.Value(adminHolderKey).(*adminHolder); ok {
		h.admin = admin
	}
}
