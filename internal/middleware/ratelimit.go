package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/library-catalog/internal/ratelimit"
)

// RateLimit rejects requests with 429 once the client's bucket is empty.
//
// Clients are keyed by IP. Run it after chi's RealIP so RemoteAddr already
// reflects X-Forwarded-For / X-Real-IP when behind a proxy.
func RateLimit(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					slog.String("ip", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP may have replaced
// RemoteAddr with a bare IP, which SplitHostPort rejects.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
