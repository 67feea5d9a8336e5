// Package validator provides input validation for the vector API's ingest
// and search payloads. It enforces identifier and length constraints and
// returns per-field error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway"
)

const (
	maxTitleLength = 1024
	maxBodyLength  = 1048576
	maxTopK        = 100
	defaultTopK    = 5
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that the payload carries a document id and
// that the title and body fit the index's size constraints.
func ValidateIngestRequest(req *gateway.IngestRequest) error {
	errs := make(map[string]string)

	if strings.TrimSpace(req.MongoID) == "" {
		errs["mongo_id"] = "mongo_id is required"
	}
	if len(req.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(req.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d characters", maxBodyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateSearchRequest checks the query and normalises top_k into range,
// applying the default when unset.
func ValidateSearchRequest(req *gateway.SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return &ValidationError{Fields: map[string]string{"query": "query is required"}}
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}
	if req.TopK > maxTopK {
		req.TopK = maxTopK
	}
	return nil
}
