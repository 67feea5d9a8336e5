package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Gateway.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Gateway.Port)
	}
	if cfg.Gateway.RateLimitPerMinute != 120 {
		t.Errorf("expected default rate limit 120, got %d", cfg.Gateway.RateLimitPerMinute)
	}
	if cfg.Worker.Mode != ModePolling {
		t.Errorf("expected default mode polling, got %q", cfg.Worker.Mode)
	}
	if cfg.Worker.MaxRetries != 5 {
		t.Errorf("expected default max retries 5, got %d", cfg.Worker.MaxRetries)
	}
	if cfg.Embeddings.Provider != "local" {
		t.Errorf("expected default embedder local, got %q", cfg.Embeddings.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
mongo:
  uri: mongodb://db:27017
  database: prod
  collection: articles
gateway:
  port: 9999
  authToken: s3cret
worker:
  mode: feed
  pollInterval: 2s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("expected file value, got %q", cfg.Mongo.URI)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	if cfg.Worker.Mode != ModeFeed {
		t.Errorf("expected mode feed, got %q", cfg.Worker.Mode)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Errorf("expected pollInterval 2s, got %s", cfg.Worker.PollInterval)
	}
	// Values absent from the file keep their defaults.
	if cfg.Worker.MaxRetries != 5 {
		t.Errorf("expected default max retries preserved, got %d", cfg.Worker.MaxRetries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MVS_MONGO_URI", "mongodb://override:27017")
	t.Setenv("MVS_GATEWAY_AUTH_TOKEN", "env-token")
	t.Setenv("MVS_WORKER_MODE", "feed")
	t.Setenv("MVS_GATEWAY_RATE_LIMIT_PER_MIN", "30")
	t.Setenv("MVS_WORKER_RETRY_BASE_DELAY", "250ms")
	t.Setenv("MVS_KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://override:27017" {
		t.Errorf("env override not applied, got %q", cfg.Mongo.URI)
	}
	if cfg.Gateway.AuthToken != "env-token" {
		t.Errorf("expected env token, got %q", cfg.Gateway.AuthToken)
	}
	if cfg.Worker.Mode != ModeFeed {
		t.Errorf("expected env mode feed, got %q", cfg.Worker.Mode)
	}
	if cfg.Gateway.RateLimitPerMinute != 30 {
		t.Errorf("expected rate limit 30, got %d", cfg.Gateway.RateLimitPerMinute)
	}
	if cfg.Worker.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("expected retry base delay 250ms, got %s", cfg.Worker.RetryBaseDelay)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Worker.Mode = "streaming"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown worker mode")
	}
}

func TestValidateRequiresMongoSettings(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mongo.URI = ""
	cfg.Mongo.Collection = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing mongo settings")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		Database: "vectors", SSLMode: "disable",
	}
	want := "host=db port=5432 user=u password=p dbname=vectors sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %q\nwant %q", got, want)
	}
}
