// Package client implements the sync worker's HTTP client for the vector
// API. Admission rejections (401/429) are marked permanent so the engine's
// retry loop gives up on them immediately; everything else is transient.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/worker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/resilience"
)

// Client posts ingestion payloads to the gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for the gateway at baseURL. token may be empty when
// the gateway runs with auth disabled. Every request is bounded by timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ingest delivers one payload to POST /ingest. A nil return means the
// gateway confirmed the upsert.
func (c *Client) Ingest(ctx context.Context, payload worker.IngestPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("marshaling ingest payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", bytes.NewReader(body))
	if err != nil {
		return resilience.Permanent(fmt.Errorf("building ingest request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to gateway: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return resilience.Permanent(fmt.Errorf("%w: gateway rejected token", apperrors.ErrUnauthorized))
	case resp.StatusCode == http.StatusTooManyRequests:
		return resilience.Permanent(fmt.Errorf("%w: gateway throttled ingest", apperrors.ErrRateLimited))
	case resp.StatusCode == http.StatusBadRequest:
		return resilience.Permanent(fmt.Errorf("%w: gateway rejected payload", apperrors.ErrInvalidInput))
	default:
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
}
