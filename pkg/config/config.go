// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Mongo, Index, Gateway, Worker, Embeddings, ...).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Index      IndexConfig      `yaml:"index"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Worker     WorkerConfig     `yaml:"worker"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// MongoConfig identifies the source-of-truth document collection.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// IndexConfig holds the on-disk location and collection name of the
// embedded vector index.
type IndexConfig struct {
	DataDir    string `yaml:"dataDir"`
	Collection string `yaml:"collection"`
}

// GatewayConfig controls the vector API's port and admission policy.
// An empty AuthToken disables authentication entirely; this is an explicit
// operator opt-out, not a silent default.
type GatewayConfig struct {
	Port               int           `yaml:"port"`
	AuthToken          string        `yaml:"authToken"`
	CORSAllowOrigins   []string      `yaml:"corsAllowOrigins"`
	RateLimitPerMinute int           `yaml:"rateLimitPerMinute"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
}

// Sync source modes accepted by WorkerConfig.Mode.
const (
	ModePolling = "polling"
	ModeFeed    = "feed"
)

// WorkerConfig controls the sync worker: which change-source strategy to
// run, where the gateway lives, and the retry/checkpoint parameters.
type WorkerConfig struct {
	Mode           string        `yaml:"mode"`
	GatewayURL     string        `yaml:"gatewayUrl"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay"`
	MaxRetries     int           `yaml:"maxRetries"`
	CheckpointFile string        `yaml:"checkpointFile"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// EmbeddingsConfig selects the embedding provider used for documents that
// arrive without a precomputed embedding.
type EmbeddingsConfig struct {
	Provider    string `yaml:"provider"` // "local" or "ollama"
	OllamaURL   string `yaml:"ollamaUrl"`
	OllamaModel string `yaml:"ollamaModel"`
	Dimensions  int    `yaml:"dimensions"`
}

// RedisConfig holds Redis connection parameters for the optional search
// cache. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings for the optional sync-event
// publisher. An empty broker list disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PostgresConfig holds connection parameters for the optional delivery
// ledger.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result. Missing values fall back to local
// development defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on missing required values so a misconfigured
// deployment dies at startup instead of syncing into the void.
func (c *Config) Validate() error {
	var missing []string
	if c.Mongo.URI == "" {
		missing = append(missing, "mongo.uri")
	}
	if c.Mongo.Database == "" {
		missing = append(missing, "mongo.database")
	}
	if c.Mongo.Collection == "" {
		missing = append(missing, "mongo.collection")
	}
	if c.Index.DataDir == "" {
		missing = append(missing, "index.dataDir")
	}
	if c.Index.Collection == "" {
		missing = append(missing, "index.collection")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Worker.Mode != ModePolling && c.Worker.Mode != ModeFeed {
		return fmt.Errorf("worker.mode must be %q or %q, got %q", ModePolling, ModeFeed, c.Worker.Mode)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "appdb",
			Collection: "documents",
		},
		Index: IndexConfig{
			DataDir:    "data/index",
			Collection: "documents",
		},
		Gateway: GatewayConfig{
			Port:               8080,
			AuthToken:          "",
			CORSAllowOrigins:   nil,
			RateLimitPerMinute: 120,
			RequestTimeout:     30 * time.Second,
		},
		Worker: WorkerConfig{
			Mode:           ModePolling,
			GatewayURL:     "http://localhost:8080",
			PollInterval:   5 * time.Second,
			RetryBaseDelay: 500 * time.Millisecond,
			MaxRetries:     5,
			CheckpointFile: "data/worker.checkpoint",
			RequestTimeout: 10 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:    "local",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "nomic-embed-text",
			Dimensions:  256,
		},
		Redis: RedisConfig{
			Addr:     "",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: nil,
			Topic:   "vector-sync-events",
		},
		Postgres: PostgresConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "vectorsync",
			User:            "vectorsync",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads MVS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MVS_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MVS_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("MVS_MONGO_COLLECTION"); v != "" {
		cfg.Mongo.Collection = v
	}
	if v := os.Getenv("MVS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("MVS_INDEX_COLLECTION"); v != "" {
		cfg.Index.Collection = v
	}
	if v := os.Getenv("MVS_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("MVS_GATEWAY_AUTH_TOKEN"); v != "" {
		cfg.Gateway.AuthToken = v
	}
	if v := os.Getenv("MVS_GATEWAY_CORS_ALLOW_ORIGINS"); v != "" {
		cfg.Gateway.CORSAllowOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("MVS_GATEWAY_RATE_LIMIT_PER_MIN"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.RateLimitPerMinute = limit
		}
	}
	if v := os.Getenv("MVS_WORKER_MODE"); v != "" {
		cfg.Worker.Mode = v
	}
	if v := os.Getenv("MVS_WORKER_GATEWAY_URL"); v != "" {
		cfg.Worker.GatewayURL = v
	}
	if v := os.Getenv("MVS_WORKER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.PollInterval = d
		}
	}
	if v := os.Getenv("MVS_WORKER_RETRY_BASE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.RetryBaseDelay = d
		}
	}
	if v := os.Getenv("MVS_WORKER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Worker.MaxRetries = n
		}
	}
	if v := os.Getenv("MVS_WORKER_CHECKPOINT_FILE"); v != "" {
		cfg.Worker.CheckpointFile = v
	}
	if v := os.Getenv("MVS_EMBEDDINGS_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("MVS_EMBEDDINGS_OLLAMA_URL"); v != "" {
		cfg.Embeddings.OllamaURL = v
	}
	if v := os.Getenv("MVS_EMBEDDINGS_OLLAMA_MODEL"); v != "" {
		cfg.Embeddings.OllamaModel = v
	}
	if v := os.Getenv("MVS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MVS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("MVS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitAndTrim(v)
	}
	if v := os.Getenv("MVS_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("MVS_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MVS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MVS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("MVS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("MVS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("MVS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MVS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MVS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MVS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

// splitAndTrim splits a comma-separated list and drops empty entries.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
