// Package worker defines the types shared by the sync worker's engine,
// gateway client, and publishers.
package worker

import (
	"context"
	"time"
)

// IngestPayload is the normalized form of a change event, sent to the
// gateway's /ingest endpoint. Metadata composition (text, tag flattening)
// happens gateway-side; the payload carries the raw fields plus any
// precomputed embedding.
type IngestPayload struct {
	MongoID   string    `json:"mongo_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SyncEvent is published after a confirmed delivery, for downstream audit
// and fan-out consumers.
type SyncEvent struct {
	DocumentID string    `json:"document_id"`
	Position   string    `json:"position,omitempty"`
	Operation  string    `json:"operation"`
	SyncedAt   time.Time `json:"synced_at"`
}

// Publisher emits SyncEvents after confirmed deliveries.
type Publisher interface {
	Publish(ctx context.Context, event SyncEvent) error
}

// NoopPublisher is the Publisher used when no broker is configured.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(context.Context, SyncEvent) error { return nil }
