// Package integration contains tests that verify the full gateway stack:
// real router middleware chain, real handler, and a real on-disk vector
// index, with the deterministic local embedder standing in for an external
// embedding service.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/embeddings"
	gwhandler "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/handler"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
)

const testToken = "integration-test-token"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newGatewayServer builds a test gateway over a real index in a temp dir,
// with auth enabled and the given per-minute rate limit.
func newGatewayServer(t *testing.T, rateLimit int) *httptest.Server {
	t.Helper()

	idx, err := index.New(config.IndexConfig{
		DataDir:    t.TempDir(),
		Collection: "documents",
	}, embeddings.NewLocal(64).Embed)
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}

	h := gwhandler.New(idx, nil, nil)
	limiter := ratelimit.New(time.Minute)
	chain := router.New(h, limiter, nil, nil, router.Config{
		AuthToken:          testToken,
		RateLimitPerMinute: rateLimit,
	})

	srv := httptest.NewServer(chain)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestHealthEndpoint verifies the health check is accessible without a token.
func TestHealthEndpoint(t *testing.T) {
	srv := newGatewayServer(t, 100)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

// TestUnauthenticatedRequestRejected verifies all mutation and query
// endpoints reject requests without a valid token.
func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv := newGatewayServer(t, 100)

	paths := []string{"/ingest", "/search", "/delete"}
	for _, path := range paths {
		resp := postJSON(t, srv.URL+path, "", map[string]string{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, resp.StatusCode)
		}

		resp = postJSON(t, srv.URL+path, "wrong-token", map[string]string{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s with bad token: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

// TestIngestSearchDeleteRoundTrip exercises the full document lifecycle
// through the HTTP surface.
func TestIngestSearchDeleteRoundTrip(t *testing.T) {
	srv := newGatewayServer(t, 100)

	// Ingest.
	resp := postJSON(t, srv.URL+"/ingest", testToken, map[string]any{
		"mongo_id": "article-7",
		"title":    "Change streams explained",
		"body":     "How MongoDB change streams deliver ordered document events.",
		"tags":     []string{"mongodb", "streams"},
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("ingest: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var ingestResp map[string]string
	decodeBody(t, resp, &ingestResp)
	if ingestResp["status"] != "ingested" || ingestResp["id"] != "article-7" {
		t.Errorf("unexpected ingest response: %v", ingestResp)
	}

	// Search finds it, with flattened tags in metadata.
	resp = postJSON(t, srv.URL+"/search", testToken, map[string]any{
		"query": "mongodb change streams ordered events",
		"top_k": 3,
	})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("search: expected 200, got %d", resp.StatusCode)
	}
	var searchResp struct {
		Query   string `json:"query"`
		Results []struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"results"`
	}
	decodeBody(t, resp, &searchResp)
	if len(searchResp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(searchResp.Results))
	}
	if searchResp.Results[0].ID != "article-7" {
		t.Errorf("expected article-7, got %q", searchResp.Results[0].ID)
	}
	if got := searchResp.Results[0].Metadata["tags"]; got != "mongodb, streams" {
		t.Errorf("expected flattened tags, got %q", got)
	}

	// Delete, then verify the index is empty.
	resp = postJSON(t, srv.URL+"/delete", testToken, map[string]string{"mongo_id": "article-7"})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/search", testToken, map[string]any{"query": "change streams"})
	decodeBody(t, resp, &searchResp)
	if len(searchResp.Results) != 0 {
		t.Errorf("expected no results after delete, got %d", len(searchResp.Results))
	}
}

// TestZeroMatchesReturnsEmptyArray verifies empty search results are a 200
// with an empty array, never an error.
func TestZeroMatchesReturnsEmptyArray(t *testing.T) {
	srv := newGatewayServer(t, 100)

	resp := postJSON(t, srv.URL+"/search", testToken, map[string]any{"query": "nothing here"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for zero matches, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var raw map[string]json.RawMessage
	json.Unmarshal(body, &raw)
	if string(raw["results"]) != "[]" {
		t.Errorf("expected results=[], got %s", raw["results"])
	}
}

// TestRateLimiting verifies the gateway enforces per-origin limits and that
// rate limiting takes precedence over authentication.
func TestRateLimiting(t *testing.T) {
	srv := newGatewayServer(t, 2)

	// First 2 requests pass admission (and fail validation, which is fine).
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/search", testToken, map[string]any{"query": "q"})
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("request %d: unexpected 429", i+1)
		}
	}

	// 3rd request is over the limit.
	resp := postJSON(t, srv.URL+"/search", testToken, map[string]any{"query": "q"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 over limit, got %d", resp.StatusCode)
	}

	// Over the limit with a bad token: still 429, not 401.
	resp = postJSON(t, srv.URL+"/search", "bad-token", map[string]any{"query": "q"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 for request violating both limits and auth, got %d", resp.StatusCode)
	}
}

// TestValidationRejected verifies malformed payloads are rejected with 400
// and per-field details.
func TestValidationRejected(t *testing.T) {
	srv := newGatewayServer(t, 100)

	resp := postJSON(t, srv.URL+"/ingest", testToken, map[string]any{"title": "no id"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if _, ok := body.Fields["mongo_id"]; !ok {
		t.Errorf("expected mongo_id field error, got %v", body.Fields)
	}
}

// TestIdempotentIngest verifies repeated ingest of the same id replaces the
// record instead of duplicating it.
func TestIdempotentIngest(t *testing.T) {
	srv := newGatewayServer(t, 100)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/ingest", testToken, map[string]any{
			"mongo_id": "doc-1",
			"title":    "Same document",
			"body":     "delivered several times",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ingest %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp := postJSON(t, srv.URL+"/search", testToken, map[string]any{"query": "delivered several times", "top_k": 10})
	var searchResp struct {
		Results []json.RawMessage `json:"results"`
	}
	decodeBody(t, resp, &searchResp)
	if len(searchResp.Results) != 1 {
		t.Errorf("expected 1 result after repeated ingest, got %d", len(searchResp.Results))
	}
}
