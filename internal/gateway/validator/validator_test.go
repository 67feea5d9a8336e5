package validator

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway"
)

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       gateway.IngestRequest
		wantField string
	}{
		{
			name: "valid",
			req:  gateway.IngestRequest{MongoID: "doc-1", Title: "t", Body: "b"},
		},
		{
			name:      "missing id",
			req:       gateway.IngestRequest{Title: "t"},
			wantField: "mongo_id",
		},
		{
			name:      "whitespace id",
			req:       gateway.IngestRequest{MongoID: "   "},
			wantField: "mongo_id",
		},
		{
			name:      "title too long",
			req:       gateway.IngestRequest{MongoID: "doc-1", Title: strings.Repeat("x", 1025)},
			wantField: "title",
		},
		{
			name:      "body too long",
			req:       gateway.IngestRequest{MongoID: "doc-1", Body: strings.Repeat("x", 1048577)},
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			vErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, present := vErr.Fields[tt.wantField]; !present {
				t.Errorf("expected failure on field %q, got %v", tt.wantField, vErr.Fields)
			}
		})
	}
}

func TestValidateIngestRequestBoundaries(t *testing.T) {
	req := gateway.IngestRequest{
		MongoID: "doc-1",
		Title:   strings.Repeat("x", 1024),
		Body:    strings.Repeat("x", 1048576),
	}
	if err := ValidateIngestRequest(&req); err != nil {
		t.Errorf("expected max-length payload to validate, got %v", err)
	}
}

func TestValidateSearchRequest(t *testing.T) {
	req := gateway.SearchRequest{Query: "hello", TopK: 10}
	if err := ValidateSearchRequest(&req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if req.TopK != 10 {
		t.Errorf("in-range top_k must not change, got %d", req.TopK)
	}
}

func TestValidateSearchRequestMissingQuery(t *testing.T) {
	for _, query := range []string{"", "   "} {
		req := gateway.SearchRequest{Query: query}
		if err := ValidateSearchRequest(&req); err == nil {
			t.Errorf("query %q: expected error", query)
		}
	}
}

func TestValidateSearchRequestTopKDefaults(t *testing.T) {
	req := gateway.SearchRequest{Query: "hello"}
	if err := ValidateSearchRequest(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", req.TopK)
	}

	req = gateway.SearchRequest{Query: "hello", TopK: -3}
	ValidateSearchRequest(&req)
	if req.TopK != 5 {
		t.Errorf("expected default for negative top_k, got %d", req.TopK)
	}

	req = gateway.SearchRequest{Query: "hello", TopK: 500}
	ValidateSearchRequest(&req)
	if req.TopK != 100 {
		t.Errorf("expected top_k clamped to 100, got %d", req.TopK)
	}
}
