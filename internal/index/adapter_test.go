package index

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/embeddings"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(config.IndexConfig{
		DataDir:    t.TempDir(),
		Collection: "documents",
	}, embeddings.NewLocal(64).Embed)
	if err != nil {
		t.Fatalf("creating adapter: %v", err)
	}
	return a
}

func TestUpsertAndQuery(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	err := a.Upsert(ctx, "doc-1", "embedded vector database", map[string]string{"title": "Vectors"}, nil)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := a.Query(ctx, "vector database", 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != "doc-1" {
		t.Errorf("expected doc-1, got %q", records[0].ID)
	}
	if records[0].Metadata["title"] != "Vectors" {
		t.Errorf("expected metadata preserved, got %v", records[0].Metadata)
	}
}

func TestUpsertReplacesSameID(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	a.Upsert(ctx, "doc-1", "first version", nil, nil)
	a.Upsert(ctx, "doc-1", "second version", nil, nil)

	if got := a.Count(); got != 1 {
		t.Fatalf("expected 1 record after replacing upsert, got %d", got)
	}

	records, err := a.Query(ctx, "second version", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if records[0].Document != "second version" {
		t.Errorf("expected replaced content, got %q", records[0].Document)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	a := newTestAdapter(t)

	records, err := a.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("expected no error on empty collection, got %v", err)
	}
	if records == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestQueryCapsTopKAtCount(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	a.Upsert(ctx, "doc-1", "only document", nil, nil)
	a.Upsert(ctx, "doc-2", "another document", nil, nil)

	records, err := a.Query(ctx, "document", 100)
	if err != nil {
		t.Fatalf("query with oversized topK failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected all 2 records, got %d", len(records))
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	a.Upsert(ctx, "doc-1", "to remove", nil, nil)
	if err := a.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := a.Count(); got != 0 {
		t.Errorf("expected empty collection, got %d records", got)
	}
}

func TestDeleteUnknownIDSucceeds(t *testing.T) {
	a := newTestAdapter(t)

	if err := a.Delete(context.Background(), "never-existed"); err != nil {
		t.Errorf("expected nil for unknown id, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.IndexConfig{DataDir: dir, Collection: "documents"}
	embed := embeddings.NewLocal(64).Embed
	ctx := context.Background()

	a, err := New(cfg, embed)
	if err != nil {
		t.Fatalf("creating adapter: %v", err)
	}
	if err := a.Upsert(ctx, "doc-1", "persisted document", nil, nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	reopened, err := New(cfg, embed)
	if err != nil {
		t.Fatalf("reopening adapter: %v", err)
	}
	if got := reopened.Count(); got != 1 {
		t.Errorf("expected 1 record after reopen, got %d", got)
	}
}

func TestFlattenTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"go"}, "go"},
		{"multiple", []string{"go", "vectors", "sync"}, "go, vectors, sync"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenTags(tt.tags); got != tt.want {
				t.Errorf("FlattenTags(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

func TestUpsertWithPrecomputedEmbedding(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	vec := make([]float32, 64)
	vec[0] = 1

	if err := a.Upsert(ctx, "doc-1", "precomputed", nil, vec); err != nil {
		t.Fatalf("upsert with embedding failed: %v", err)
	}
	if got := a.Count(); got != 1 {
		t.Errorf("expected 1 record, got %d", got)
	}
}
