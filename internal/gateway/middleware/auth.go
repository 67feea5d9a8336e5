// Package middleware provides the gateway's admission-control HTTP
// middleware: shared-token authentication, CORS, and per-origin rate
// limiting. The rate limiter runs before auth in the chain, so rate-limit
// state is recorded even for requests that auth later rejects.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
)

// Auth returns middleware that validates the shared bearer token. An empty
// token disables authentication entirely — an explicit operator opt-out.
// Health endpoints are exempt. A raw token without the Bearer prefix is
// accepted too.
func Auth(token string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			presented := extractToken(r)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				if m != nil {
					m.AuthFailuresTotal.Inc()
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the credential from the Authorization header,
// stripping an optional "Bearer " prefix.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(auth)
}

// writeError writes a JSON error response to the client.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
