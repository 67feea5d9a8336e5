// Package publisher emits sync confirmation events to Kafka after each
// delivery the gateway accepted. Publish failures are logged and swallowed:
// the event stream is advisory fan-out, and losing one must not block the
// checkpoint from advancing.
package publisher

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
)

// Kafka publishes SyncEvents through a kafka producer, keyed by document id
// so per-document ordering survives partitioning.
type Kafka struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewKafka creates a Kafka publisher over the given producer.
func NewKafka(producer *kafka.Producer) *Kafka {
	return &Kafka{
		producer: producer,
		logger:   logger.WithComponent("sync-publisher"),
	}
}

// Publish emits one SyncEvent. It never returns an error to the caller.
func (p *Kafka) Publish(ctx context.Context, event worker.SyncEvent) error {
	err := p.producer.Publish(ctx, kafka.Event{
		Key:   event.DocumentID,
		Value: event,
	})
	if err != nil {
		p.logger.Error("failed to publish sync event",
			"doc_id", event.DocumentID,
			"error", err,
		)
	}
	return nil
}
