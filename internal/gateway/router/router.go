// Package router wires up the vector API routes and applies the admission
// middleware chain (RequestID → Metrics → CORS → Timeout → RateLimit →
// Auth). Rate limiting deliberately precedes auth: limiter state is
// recorded even for requests that fail authentication, and a request that
// violates both is rejected for rate limiting.
package router

import (
	"net/http"
	"time"

	gwhandler "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/handler"
	gwmw "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/middleware"
)

// Config carries the admission-control settings the router needs.
type Config struct {
	AuthToken          string
	RateLimitPerMinute int
	CORSAllowOrigins   []string
	RequestTimeout     time.Duration
}

// New builds the full gateway HTTP handler.
//
// Route table:
//
//	GET    /health          → liveness (no auth, no rate limit)
//	GET    /health/live     → kubernetes liveness probe
//	GET    /health/ready    → kubernetes readiness probe (runs checks)
//	POST   /ingest          → upsert a document into the vector index
//	POST   /search          → similarity query
//	POST   /delete          → remove a document
//
// checker and m may be nil (probes fall back to the plain health handler,
// metrics middleware is skipped).
func New(h *gwhandler.Handler, limiter *ratelimit.Limiter, checker *health.Checker, m *metrics.Metrics, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}

	mux.HandleFunc("POST /ingest", h.Ingest)
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("POST /delete", h.Delete)

	// Middleware chain — applied inside-out:
	// request → RequestID → Metrics → CORS → Timeout → RateLimit → Auth → mux
	var chain http.Handler = mux
	chain = gwmw.Auth(cfg.AuthToken, m)(chain)
	chain = gwmw.RateLimit(limiter, cfg.RateLimitPerMinute, m)(chain)
	if cfg.RequestTimeout > 0 {
		chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	}
	chain = gwmw.CORS(gwmw.NewCORSConfig(cfg.CORSAllowOrigins))(chain)
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	chain = pkgmw.RequestID(chain)

	return chain
}
