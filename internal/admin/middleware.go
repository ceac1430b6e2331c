package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// ErrPanicRecovered indicates an admin handler panicked and was recovered.
var ErrPanicRecovered = errors.New("panic recovered in admin handler")

// statusWriter captures the response status for logging, since
// http.ResponseWriter doesn't expose it after the fact.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs every admin request with method, path,
// duration, and status, adapted from internal/server/interceptors.go's
// LoggingInterceptor (there a ConnectRPC UnaryInterceptorFunc, here a
// plain net/http middleware since the admin surface has no RPC
// envelope to unwrap). It also recovers panics, matching
// RecoveryInterceptor's behavior of turning a panic into a logged
// error plus a 500 instead of crashing the server.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if rec := recover(); rec != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)

					logger.Error("panic recovered in admin handler",
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(buf[:n])),
					)

					http.Error(sw, fmt.Errorf("%s: %w", r.URL.Path, ErrPanicRecovered).Error(),
						http.StatusInternalServerError)
				}
			}()

			start := time.Now()
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", duration),
			}

			if sw.status >= 400 {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "admin request completed with error", attrs...)
			} else {
				logger.LogAttrs(r.Context(), slog.LevelInfo, "admin request completed", attrs...)
			}
		})
	}
}
