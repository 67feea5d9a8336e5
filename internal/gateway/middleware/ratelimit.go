package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
)

// RateLimit returns middleware that enforces a per-origin request limit
// over the limiter's sliding window. Origins are identified by client IP.
// Health endpoints are exempt. This middleware sits outside Auth: a request
// consumes rate-limit budget even when its token is invalid, and a request
// that is both over the limit and unauthenticated is rejected with 429.
func RateLimit(limiter *ratelimit.Limiter, limit int, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(clientOrigin(r), limit) {
				if m != nil {
					m.RateLimitRejectionsTotal.Inc()
				}
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientOrigin identifies the caller by connection origin: the first
// X-Forwarded-For hop when present (gateway behind a proxy), otherwise the
// remote address without the port.
func clientOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
