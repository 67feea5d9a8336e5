package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/resilience"
)

// sourceDoc is the wire shape of a document in the primary collection.
type sourceDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Body      string             `bson:"body"`
	Tags      []string           `bson:"tags,omitempty"`
	Embedding []float32          `bson:"embedding,omitempty"`
}

// Poller is the polling-cursor Source: it queries the collection for all
// documents whose _id strictly exceeds the checkpoint, ascending, and
// sleeps the poll interval between queries. ObjectIDs are monotonic per
// insertion, which makes _id the position marker.
type Poller struct {
	coll     *mongo.Collection
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	primed   bool
}

// NewPoller creates a Poller over the given collection. timeout bounds each
// fetch against the primary store; a stalled connection surfaces as a fetch
// error instead of blocking the sync loop.
func NewPoller(coll *mongo.Collection, interval, timeout time.Duration) *Poller {
	return &Poller{
		coll:     coll,
		interval: interval,
		timeout:  timeout,
		logger:   logger.WithComponent("poll-source"),
	}
}

// Next returns the next non-empty batch of documents beyond the checkpoint,
// sleeping the poll interval between queries. The very first call queries
// immediately. An unparseable checkpoint is treated as absent: the whole
// sequence is replayed and idempotent upserts downstream absorb the
// duplicates.
func (p *Poller) Next(ctx context.Context, after string) ([]ChangeEvent, error) {
	for {
		if p.primed {
			select {
			case <-time.After(p.interval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		p.primed = true

		events, err := p.fetch(ctx, after)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

func (p *Poller) fetch(ctx context.Context, after string) ([]ChangeEvent, error) {
	filter := bson.M{}
	if after != "" {
		oid, err := primitive.ObjectIDFromHex(after)
		if err != nil {
			p.logger.Warn("invalid checkpoint, resuming from scratch", "checkpoint", after, "error", err)
		} else {
			filter["_id"] = bson.M{"$gt": oid}
		}
	}

	var docs []sourceDoc
	err := resilience.WithTimeout(ctx, p.timeout, "source-fetch", func(ctx context.Context) error {
		cursor, err := p.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return fmt.Errorf("querying changes: %w", err)
		}
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, err)
	}

	events := make([]ChangeEvent, len(docs))
	for i, doc := range docs {
		events[i] = ChangeEvent{
			ID:        doc.ID.Hex(),
			Operation: OpCreated,
			Title:     doc.Title,
			Body:      doc.Body,
			Tags:      doc.Tags,
			Embedding: doc.Embedding,
			Position:  doc.ID.Hex(),
		}
	}
	return events, nil
}
