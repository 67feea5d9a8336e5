// Package gateway defines the request/response types of the vector API's
// HTTP surface.
package gateway

import "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"

// IngestRequest is the JSON body accepted by POST /ingest. Embedding is
// optional: when absent the index computes one from the composed text.
type IngestRequest struct {
	MongoID   string    `json:"mongo_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// IngestResponse confirms an upsert into the vector index.
type IngestResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// SearchRequest is the JSON body accepted by POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// SearchResponse echoes the query and carries the ranked results. Results
// is always present, empty when nothing matched.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []index.Record `json:"results"`
}

// DeleteRequest is the JSON body accepted by POST /delete.
type DeleteRequest struct {
	MongoID string `json:"mongo_id"`
}

// DeleteResponse confirms a deletion; deleting an unknown id succeeds too.
type DeleteResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}
