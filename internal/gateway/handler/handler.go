package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/cache"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/validator"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/metrics"
)

// Handler implements the vector API's HTTP endpoints: ingest, search,
// delete, and health. It owns the only write path into the index adapter.
// The search cache and metrics are optional; nil disables them.
type Handler struct {
	idx     *index.Adapter
	cache   *cache.SearchCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler over the given index adapter.
func New(idx *index.Adapter, searchCache *cache.SearchCache, m *metrics.Metrics) *Handler {
	return &Handler{
		idx:     idx,
		cache:   searchCache,
		metrics: m,
		logger:  logger.WithComponent("gateway-handler"),
	}
}

// Health returns the gateway's liveness status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ingest upserts a document into the vector index. Repeated calls with the
// same mongo_id replace the stored record, so delivery retries from the
// sync worker are safe.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req gateway.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	text := composeText(&req)
	metadata := map[string]string{
		"source": "mongo",
		"title":  req.Title,
	}
	// The index only accepts scalar metadata values; the tag list becomes
	// a single delimited string.
	if tags := index.FlattenTags(req.Tags); tags != "" {
		metadata["tags"] = tags
	}

	if err := h.idx.Upsert(ctx, req.MongoID, text, metadata, req.Embedding); err != nil {
		log.Error("upsert failed", "id", req.MongoID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "ingestion failed")
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIngestedTotal.Inc()
	}
	h.invalidateCache(r)

	log.Info("document ingested", "id", req.MongoID, "tags", len(req.Tags), "has_embedding", len(req.Embedding) > 0)
	h.writeJSON(w, http.StatusOK, gateway.IngestResponse{Status: "ingested", ID: req.MongoID})
}

// Search runs a similarity query against the index. Zero matches produce an
// empty results array with HTTP 200, never an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	start := time.Now()

	var req gateway.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateSearchRequest(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	var (
		records []index.Record
		cached  bool
		err     error
	)
	if h.cache != nil {
		records, cached, err = h.cache.GetOrCompute(ctx, req.Query, req.TopK, func() ([]index.Record, error) {
			return h.idx.Query(ctx, req.Query, req.TopK)
		})
	} else {
		records, err = h.idx.Query(ctx, req.Query, req.TopK)
	}
	if err != nil {
		log.Error("search failed", "query", req.Query, "error", err)
		h.recordSearch("error", cached, start)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	if len(records) == 0 {
		h.recordSearch("zero_result", cached, start)
	} else {
		h.recordSearch("hit", cached, start)
	}

	h.writeJSON(w, http.StatusOK, gateway.SearchResponse{Query: req.Query, Results: records})
}

// Delete removes a document from the index. Unknown ids succeed: delete is
// idempotent by contract.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req gateway.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.MongoID) == "" {
		h.writeError(w, http.StatusBadRequest, "mongo_id is required")
		return
	}

	if err := h.idx.Delete(ctx, req.MongoID); err != nil {
		log.Error("delete failed", "id", req.MongoID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "delete failed")
		return
	}
	if h.metrics != nil {
		h.metrics.DocsDeletedTotal.Inc()
	}
	h.invalidateCache(r)

	log.Info("document deleted", "id", req.MongoID)
	h.writeJSON(w, http.StatusOK, gateway.DeleteResponse{Status: "deleted", ID: req.MongoID})
}

// composeText builds the searchable text stored alongside the embedding.
func composeText(req *gateway.IngestRequest) string {
	return strings.TrimSpace(fmt.Sprintf("Title: %s\nBody: %s\nTags: %s",
		req.Title, req.Body, index.FlattenTags(req.Tags)))
}

func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Warn("cache invalidation failed", "error", err)
	}
}

func (h *Handler) recordSearch(resultType string, cached bool, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	cacheStatus := "miss"
	if cached {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
