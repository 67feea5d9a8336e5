// Package index adapts the embedded chromem-go vector database to the
// upsert/query/delete contract the gateway exposes. The index itself is
// treated as opaque: this package owns record persistence and enforces the
// scalar-metadata contract at the type level (map[string]string).
package index

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
)

// Record is a single entry returned by a similarity query.
type Record struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Score    float32           `json:"score,omitempty"`
}

// EmbeddingFunc produces a vector for a piece of text. It matches
// chromem-go's embedding callback signature.
type EmbeddingFunc = chromem.EmbeddingFunc

// Adapter wraps a persistent chromem-go collection keyed by document id.
// Upserting an id that already exists replaces the previous record, so the
// collection never holds two records for the same id.
type Adapter struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

// New opens (or creates) the persistent index at cfg.DataDir and the named
// collection inside it. embed is used to vectorise documents that arrive
// without a precomputed embedding, and all queries.
func New(cfg config.IndexConfig, embed EmbeddingFunc) (*Adapter, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", cfg.DataDir, err)
	}
	db, err := chromem.NewPersistentDB(cfg.DataDir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector index at %s: %w", cfg.DataDir, err)
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}
	return &Adapter{
		db:         db,
		collection: collection,
		logger:     logger.WithComponent("index").With("collection", cfg.Collection),
	}, nil
}

// Upsert stores a record under id, replacing any previous record with the
// same id. Metadata values must already be scalar; list-valued attributes
// (tags) are flattened by the caller via FlattenTags. An empty embedding
// delegates vectorisation to the collection's embedding func.
func (a *Adapter) Upsert(ctx context.Context, id, text string, metadata map[string]string, embedding []float32) error {
	doc := chromem.Document{
		ID:        id,
		Content:   text,
		Metadata:  metadata,
		Embedding: embedding,
	}
	if err := a.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return apperrors.Newf(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "upserting document %s: %v", id, err)
	}
	a.logger.Debug("document upserted", "id", id, "text_len", len(text))
	return nil
}

// Query runs a similarity search and returns at most topK records, best
// match first. Zero matches (including an empty collection) yield an empty
// slice, never an error.
func (a *Adapter) Query(ctx context.Context, text string, topK int) ([]Record, error) {
	count := a.collection.Count()
	if count == 0 {
		return []Record{}, nil
	}
	// chromem rejects nResults > document count.
	if topK > count {
		topK = count
	}
	results, err := a.collection.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "querying index: %v", err)
	}
	records := make([]Record, len(results))
	for i, r := range results {
		records[i] = Record{
			ID:       r.ID,
			Document: r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		}
	}
	return records, nil
}

// Delete removes the record for id. Deleting an id that does not exist is
// not an error.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	if err := a.collection.Delete(ctx, nil, nil, id); err != nil {
		return apperrors.Newf(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "deleting document %s: %v", id, err)
	}
	a.logger.Debug("document deleted", "id", id)
	return nil
}

// Count returns the number of records currently in the collection.
func (a *Adapter) Count() int {
	return a.collection.Count()
}

// FlattenTags collapses a tag list into the single delimited string the
// index requires for metadata values ("a, b"). An empty list yields "".
func FlattenTags(tags []string) string {
	return strings.Join(tags, ", ")
}
