// Package engine implements the sync loop: fetch a batch of changes,
// normalize and deliver each through the gateway with bounded jittered
// retry, and advance the checkpoint only after confirmed delivery.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/checkpoint"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/ledger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker/source"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/tracing"
)

// Gateway delivers normalized ingestion payloads to the vector API.
type Gateway interface {
	Ingest(ctx context.Context, payload worker.IngestPayload) error
}

// Config tunes the engine's fetch and delivery behaviour.
type Config struct {
	// PollInterval throttles retries after a source failure (and, in the
	// polling source itself, the gap between queries).
	PollInterval time.Duration
	// RetryBaseDelay is the first backoff delay; each attempt doubles it.
	RetryBaseDelay time.Duration
	// MaxRetries caps delivery attempts per event.
	MaxRetries int
	// TrackProgress enables checkpointing (polling mode). Feed mode runs
	// with it off: there is no position to persist, and a failed delivery
	// is dropped rather than refetched.
	TrackProgress bool
}

// Engine drives one change source. It processes strictly one event at a
// time: an event is delivered and checkpointed (or abandoned after
// exhausting retries) before the next is considered, which keeps checkpoint
// advancement sequential and applies natural backpressure to the source.
type Engine struct {
	src         source.Source
	gateway     Gateway
	checkpoints *checkpoint.Store
	publisher   worker.Publisher
	ledger      *ledger.Ledger
	metrics     *metrics.Metrics
	cfg         Config
	logger      *slog.Logger

	position string
}

// New creates an Engine. publisher must not be nil (use
// worker.NoopPublisher); ledger and m may be nil.
func New(src source.Source, gateway Gateway, checkpoints *checkpoint.Store, publisher worker.Publisher, lgr *ledger.Ledger, m *metrics.Metrics, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Engine{
		src:         src,
		gateway:     gateway,
		checkpoints: checkpoints,
		publisher:   publisher,
		ledger:      lgr,
		metrics:     m,
		cfg:         cfg,
		logger:      logger.WithComponent("sync-engine"),
	}
}

// Run executes the sync loop until ctx is cancelled. It never returns a
// non-nil error: the loop is meant to run forever, and source outages are
// absorbed by waiting out the poll interval and fetching again.
func (e *Engine) Run(ctx context.Context) error {
	e.position = e.checkpoints.Load()
	e.logger.Info("sync engine starting",
		"checkpoint", e.position,
		"track_progress", e.cfg.TrackProgress,
		"max_retries", e.cfg.MaxRetries,
	)

	for {
		if ctx.Err() != nil {
			e.logger.Info("sync engine stopping", "checkpoint", e.position)
			return nil
		}

		batch, err := e.src.Next(ctx, e.position)
		if err != nil {
			if ctx.Err() != nil {
				e.logger.Info("sync engine stopping", "checkpoint", e.position)
				return nil
			}
			e.countFetch("error")
			e.logger.Error("change source unavailable, retrying after interval",
				"error", err,
				"interval", e.cfg.PollInterval,
			)
			if !sleep(ctx, e.cfg.PollInterval) {
				return nil
			}
			continue
		}
		e.countFetch("ok")
		e.processBatch(ctx, batch)
	}
}

// processBatch delivers events in source order. In tracking mode a failed
// event aborts the rest of the batch so the checkpoint never skips past it;
// the next fetch resumes from the checkpoint and retries the document. In
// feed mode the failed event is dropped and the stream continues.
func (e *Engine) processBatch(ctx context.Context, batch []source.ChangeEvent) {
	spanCtx, span := tracing.StartSpan(ctx, "sync-cycle", cycleTraceID(batch))
	span.SetAttr("batch_size", len(batch))
	defer func() {
		span.End()
		span.Log()
	}()

	for _, event := range batch {
		attempts, err := e.deliver(spanCtx, event)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Error("delivery abandoned",
				"doc_id", event.ID,
				"position", event.Position,
				"attempts", attempts,
				"error", err,
			)
			e.ledger.Record(ctx, event.ID, event.Position, ledger.StatusFailed, attempts, err.Error())
			e.countDelivery("abandoned")
			if e.cfg.TrackProgress {
				return
			}
			continue
		}

		e.logger.Info("document synced", "doc_id", event.ID, "position", event.Position, "attempts", attempts)
		e.ledger.Record(ctx, event.ID, event.Position, ledger.StatusSynced, attempts, "")
		e.countDelivery("synced")
		e.publisher.Publish(ctx, worker.SyncEvent{
			DocumentID: event.ID,
			Position:   event.Position,
			Operation:  event.Operation,
			SyncedAt:   time.Now().UTC(),
		})

		if e.cfg.TrackProgress {
			e.advance(event.Position)
		}
	}
}

// deliver normalizes one event and posts it to the gateway with bounded,
// jittered exponential backoff. Backoff waits abort on ctx cancellation.
// It returns the number of attempts made.
func (e *Engine) deliver(ctx context.Context, event source.ChangeEvent) (int, error) {
	deliverCtx, span := tracing.StartChildSpan(ctx, "deliver")
	span.SetAttr("doc_id", event.ID)
	defer span.End()

	payload := worker.IngestPayload{
		MongoID:   event.ID,
		Title:     event.Title,
		Body:      event.Body,
		Tags:      event.Tags,
		Embedding: event.Embedding,
	}

	start := time.Now()
	attempts := 0
	err := resilience.Retry(deliverCtx, "ingest", resilience.RetryConfig{
		MaxAttempts:  e.cfg.MaxRetries,
		InitialDelay: e.cfg.RetryBaseDelay,
	}, func() error {
		attempts++
		if attempts > 1 && e.metrics != nil {
			e.metrics.SyncRetriesTotal.Inc()
		}
		return e.gateway.Ingest(deliverCtx, payload)
	})
	if e.metrics != nil {
		e.metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	}
	return attempts, err
}

// advance moves the in-memory position forward and persists it. Positions
// never move backwards. A persistence failure is degraded mode, not fatal:
// the engine keeps its in-memory position and only a restart would lose
// progress.
func (e *Engine) advance(position string) {
	if position == "" || position <= e.position {
		return
	}
	e.position = position
	if err := e.checkpoints.Save(position); err != nil {
		e.countCheckpoint("error")
		e.logger.Error("checkpoint save failed, continuing with in-memory position",
			"position", position,
			"error", err,
		)
		return
	}
	e.countCheckpoint("ok")
}

// Position returns the engine's current position marker.
func (e *Engine) Position() string {
	return e.position
}

func (e *Engine) countFetch(status string) {
	if e.metrics != nil {
		e.metrics.SourceFetchesTotal.WithLabelValues(status).Inc()
	}
}

func (e *Engine) countDelivery(outcome string) {
	if e.metrics != nil {
		e.metrics.SyncDeliveriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) countCheckpoint(status string) {
	if e.metrics != nil {
		e.metrics.CheckpointSavesTotal.WithLabelValues(status).Inc()
	}
}

// cycleTraceID derives a trace id from the first event in the batch.
func cycleTraceID(batch []source.ChangeEvent) string {
	if len(batch) == 0 {
		return "empty"
	}
	return batch[0].ID
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
