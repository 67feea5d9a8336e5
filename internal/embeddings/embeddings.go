// Package embeddings provides the text-embedding providers used by the
// vector index: an external Ollama HTTP service and a dependency-free local
// fallback. Documents that arrive with a precomputed embedding bypass this
// package entirely.
package embeddings

import "context"

// Embedder produces a vector embedding for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
