// Command worker starts the MongoDB sync worker.
//
// The worker tails a MongoDB collection through one of two strategies (a
// polling cursor over ascending _id, or a change-stream feed), normalizes
// each change into an ingestion payload, and delivers it to the gateway's
// /ingest endpoint with bounded retry. In polling mode progress is
// checkpointed to a local file after each confirmed delivery, so a restart
// resumes where the last run left off.
//
// Usage:
//
//	go run ./cmd/worker [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/checkpoint"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/client"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/engine"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/ledger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/publisher"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/source"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
	pkgkafka "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
	pkgmongo "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/mongo"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/postgres"
)

// main connects to MongoDB, builds the configured change source, the
// checkpoint store, the gateway client, and any optional sinks (Kafka
// sync-event publisher, Postgres delivery ledger), then runs the sync
// engine until SIGINT/SIGTERM.
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
	slog.Info("starting sync worker",
		"mode", cfg.Worker.Mode,
		"gateway_url", cfg.Worker.GatewayURL,
		"collection", cfg.Mongo.Collection,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		defer metrics.StartServer(cfg.Metrics.Port)(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := pkgmongo.New(cfg.Mongo)
	if err != nil {
		slog.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())
	slog.Info("connected to mongo", "database", cfg.Mongo.Database)

	var src source.Source
	trackProgress := false
	switch cfg.Worker.Mode {
	case config.ModeFeed:
		src = source.NewFeed(mongoClient.Collection(), cfg.Worker.RequestTimeout, m)
	default:
		src = source.NewPoller(mongoClient.Collection(), cfg.Worker.PollInterval, cfg.Worker.RequestTimeout)
		trackProgress = true
	}

	checkpoints, err := checkpoint.NewStore(cfg.Worker.CheckpointFile)
	if err != nil {
		slog.Error("failed to initialise checkpoint store", "error", err, "path", cfg.Worker.CheckpointFile)
		os.Exit(1)
	}

	gateway := client.New(cfg.Worker.GatewayURL, cfg.Gateway.AuthToken, cfg.Worker.RequestTimeout)

	// Optional Kafka sync-event publisher.
	var pub worker.Publisher = worker.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := pkgkafka.NewProducer(cfg.Kafka, cfg.Kafka.Topic)
		defer producer.Close()
		pub = publisher.NewKafka(producer)
		slog.Info("sync-event publishing enabled", "topic", cfg.Kafka.Topic)
	}

	// Optional Postgres delivery ledger.
	var deliveryLedger *ledger.Ledger
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, delivery ledger disabled", "error", err)
		} else {
			defer db.Close()
			deliveryLedger, err = ledger.New(ctx, db)
			if err != nil {
				slog.Warn("ledger setup failed, delivery ledger disabled", "error", err)
			} else {
				slog.Info("delivery ledger enabled")
			}
		}
	}

	eng := engine.New(src, gateway, checkpoints, pub, deliveryLedger, m, engine.Config{
		PollInterval:   cfg.Worker.PollInterval,
		RetryBaseDelay: cfg.Worker.RetryBaseDelay,
		MaxRetries:     cfg.Worker.MaxRetries,
		TrackProgress:  trackProgress,
	})

	if err := eng.Run(ctx); err != nil {
		slog.Error("sync engine failed", "error", err)
		os.Exit(1)
	}

	slog.Info("sync worker stopped", "checkpoint", eng.Position())
}
