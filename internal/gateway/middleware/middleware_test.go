package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, path, token, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthValidToken(t *testing.T) {
	h := Auth("secret", nil)(okHandler())

	if rec := doRequest(h, "/ingest", "secret", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	h := Auth("secret", nil)(okHandler())

	if rec := doRequest(h, "/ingest", "wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid token, got %d", rec.Code)
	}
	if rec := doRequest(h, "/ingest", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with missing token, got %d", rec.Code)
	}
}

func TestAuthRawTokenAccepted(t *testing.T) {
	h := Auth("secret", nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for raw token without Bearer prefix, got %d", rec.Code)
	}
}

func TestAuthDisabledWhenTokenEmpty(t *testing.T) {
	h := Auth("", nil)(okHandler())

	if rec := doRequest(h, "/ingest", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestAuthExemptsHealth(t *testing.T) {
	h := Auth("secret", nil)(okHandler())

	if rec := doRequest(h, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for /health without token, got %d", rec.Code)
	}
}

func TestRateLimitEnforced(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	h := RateLimit(limiter, 2, nil)(okHandler())

	for i := 0; i < 2; i++ {
		if rec := doRequest(h, "/search", "", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := doRequest(h, "/search", "", "10.0.0.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 over limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimitPerOrigin(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	h := RateLimit(limiter, 1, nil)(okHandler())

	doRequest(h, "/search", "", "10.0.0.1:1234")
	if rec := doRequest(h, "/search", "", "10.0.0.1:9999"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("same IP different port: expected 429, got %d", rec.Code)
	}
	if rec := doRequest(h, "/search", "", "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Errorf("different IP: expected 200, got %d", rec.Code)
	}
}

func TestRateLimitDisabledWhenZero(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	h := RateLimit(limiter, 0, nil)(okHandler())

	for i := 0; i < 10; i++ {
		if rec := doRequest(h, "/search", "", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with limit disabled, got %d", rec.Code)
		}
	}
}

func TestRateLimitExemptsHealth(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	h := RateLimit(limiter, 1, nil)(okHandler())

	for i := 0; i < 5; i++ {
		if rec := doRequest(h, "/health", "", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("expected /health exempt from limits, got %d", rec.Code)
		}
	}
}

// Rate limiting takes precedence over auth: a request that is both over the
// limit and carrying a bad token gets 429, and still consumes limiter state.
func TestRateLimitPrecedesAuth(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	var h http.Handler = okHandler()
	h = Auth("secret", nil)(h)
	h = RateLimit(limiter, 1, nil)(h)

	// First request: under the limit but bad token.
	if rec := doRequest(h, "/ingest", "wrong", "10.0.0.1:1234"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 under limit, got %d", rec.Code)
	}

	// Second request: over the limit AND bad token → rate limit wins.
	if rec := doRequest(h, "/ingest", "wrong", "10.0.0.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for request violating both, got %d", rec.Code)
	}

	// Valid token doesn't bypass the limiter either.
	if rec := doRequest(h, "/ingest", "secret", "10.0.0.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 with valid token over limit, got %d", rec.Code)
	}
}

func TestClientOriginForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientOrigin(req); got != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}

func TestClientOriginRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.5:48211"

	if got := clientOrigin(req); got != "192.0.2.5" {
		t.Errorf("expected host without port, got %q", got)
	}
}

func TestCORSPreflightAndHeaders(t *testing.T) {
	cfg := NewCORSConfig([]string{"https://app.example.com"})
	h := CORS(cfg)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected allow-origin header, got %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	cfg := NewCORSConfig([]string{"https://app.example.com"})
	h := CORS(cfg)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/search", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header for unknown origin, got %q", got)
	}
}
