// Command gateway starts the vector API service.
//
// The gateway is the write and query surface of the vector index. It admits
// requests through a sliding-window rate limiter and bearer-token auth,
// upserts documents into the embedded chromem index, serves similarity
// queries (optionally cached in Redis), and deletes documents. The sync
// worker is its main client, but the API is plain JSON over HTTP and works
// for direct callers too.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/embeddings"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/cache"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/handler"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/resilience"
)

// main initialises the embedder, the chromem index adapter, the optional
// Redis search cache, the rate limiter, and the handler + router middleware
// chain, then starts the HTTP server. Graceful shutdown is triggered by
// SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting gateway service",
		"port", cfg.Gateway.Port,
		"index_dir", cfg.Index.DataDir,
		"auth_enabled", cfg.Gateway.AuthToken != "",
		"rate_limit_per_minute", cfg.Gateway.RateLimitPerMinute,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	// Embedder — used for documents and queries that arrive without a
	// precomputed vector.
	embedder := buildEmbedder(cfg.Embeddings, m)

	idx, err := index.New(cfg.Index, embedder.Embed)
	if err != nil {
		slog.Error("failed to open vector index", "error", err, "dir", cfg.Index.DataDir)
		os.Exit(1)
	}
	slog.Info("vector index ready", "collection", cfg.Index.Collection, "documents", idx.Count())

	// Optional Redis search cache.
	var searchCache *cache.SearchCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			searchCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	limiter := ratelimit.New(time.Minute)
	checker := buildChecker(idx, redisClient, embedder, cfg.Embeddings.Provider)

	h := gwhandler.New(idx, searchCache, m)
	chain := router.New(h, limiter, checker, m, router.Config{
		AuthToken:          cfg.Gateway.AuthToken,
		RateLimitPerMinute: cfg.Gateway.RateLimitPerMinute,
		CORSAllowOrigins:   cfg.Gateway.CORSAllowOrigins,
		RequestTimeout:     cfg.Gateway.RequestTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("gateway service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway service stopped")
}

// buildEmbedder selects the configured embedding provider. Anything other
// than "ollama" falls back to the deterministic local embedder.
func buildEmbedder(cfg config.EmbeddingsConfig, m *metrics.Metrics) embeddings.Embedder {
	if cfg.Provider == "ollama" {
		slog.Info("using ollama embedder", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		var onBreakerState func(resilience.State)
		if m != nil {
			onBreakerState = func(s resilience.State) {
				m.CircuitBreakerState.WithLabelValues("ollama-embed").Set(float64(s))
			}
		}
		return embeddings.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, onBreakerState)
	}
	slog.Info("using local embedder", "dimensions", cfg.Dimensions)
	return embeddings.NewLocal(cfg.Dimensions)
}

// buildChecker registers readiness checks for the index and any optional
// dependencies that are actually wired.
func buildChecker(idx *index.Adapter, redisClient *pkgredis.Client, embedder embeddings.Embedder, provider string) *health.Checker {
	checker := health.NewChecker()

	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", idx.Count()),
		}
	})

	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	if provider == "ollama" {
		ollama, ok := embedder.(*embeddings.OllamaClient)
		if ok {
			checker.Register("ollama", func(ctx context.Context) health.ComponentHealth {
				if !ollama.Healthy(ctx) {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: "embedding endpoint unreachable"}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	return checker
}
