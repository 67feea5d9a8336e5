package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
)

// Feed is the push-based Source: a MongoDB change stream filtered to
// insert/update/replace, delivering full documents one at a time.
//
// Resumption is best-effort by design: the subscription starts from "now",
// so changes that occur between a shutdown and the next subscription open
// are missed. Deployments that need exact resumption run the polling source
// instead.
type Feed struct {
	coll    *mongo.Collection
	stream  *mongo.ChangeStream
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// changeDoc is the wire shape of a change-stream event.
type changeDoc struct {
	OperationType string     `bson:"operationType"`
	FullDocument  *sourceDoc `bson:"fullDocument"`
}

// NewFeed creates a Feed over the given collection. The stream is opened
// lazily on the first Next call and reopened after errors; timeout bounds
// the open call. m may be nil.
func NewFeed(coll *mongo.Collection, timeout time.Duration, m *metrics.Metrics) *Feed {
	return &Feed{
		coll:    coll,
		timeout: timeout,
		metrics: m,
		logger:  logger.WithComponent("feed-source"),
	}
}

// Next blocks until the stream yields a usable change and returns it as a
// single-event batch. Events without a full document are dropped and
// logged, never retried. The checkpoint argument is ignored: feed mode has
// no positional resumption.
func (f *Feed) Next(ctx context.Context, _ string) ([]ChangeEvent, error) {
	if f.stream == nil {
		if err := f.open(ctx); err != nil {
			return nil, err
		}
	}

	for f.stream.Next(ctx) {
		var change changeDoc
		if err := f.stream.Decode(&change); err != nil {
			f.logger.Error("undecodable change event dropped", "error", err)
			f.countDrop("undecodable")
			continue
		}
		if change.FullDocument == nil {
			// updateLookup can race a delete; there is nothing to index.
			f.logger.Warn("change event without full document dropped",
				"operation", change.OperationType,
			)
			f.countDrop("missing_document")
			continue
		}
		doc := change.FullDocument
		op := OpUpdated
		if change.OperationType == "insert" {
			op = OpCreated
		}
		return []ChangeEvent{{
			ID:        doc.ID.Hex(),
			Operation: op,
			Title:     doc.Title,
			Body:      doc.Body,
			Tags:      doc.Tags,
			Embedding: doc.Embedding,
		}}, nil
	}

	err := f.stream.Err()
	f.close(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("%w: change stream broken: %v", apperrors.ErrSourceUnavailable, err)
}

func (f *Feed) countDrop(reason string) {
	if f.metrics != nil {
		f.metrics.SyncDroppedTotal.WithLabelValues(reason).Inc()
	}
}

func (f *Feed) open(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{
				{Key: "$in", Value: bson.A{"insert", "update", "replace"}},
			}},
		}}},
	}
	openCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	stream, err := f.coll.Watch(openCtx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("%w: opening change stream: %v", apperrors.ErrSourceUnavailable, err)
	}
	f.stream = stream
	f.logger.Info("change stream opened")
	return nil
}

func (f *Feed) close(ctx context.Context) {
	if f.stream != nil {
		if err := f.stream.Close(ctx); err != nil {
			f.logger.Warn("closing change stream", "error", err)
		}
		f.stream = nil
	}
}
