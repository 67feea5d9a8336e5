// Package metrics defines the Prometheus metric collectors used across the
// gateway and the sync worker, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DocsIngestedTotal        prometheus.Counter
	DocsDeletedTotal         prometheus.Counter
	SearchQueriesTotal       *prometheus.CounterVec
	SearchLatency            *prometheus.HistogramVec
	CacheHitsTotal           prometheus.Counter
	CacheMissesTotal         prometheus.Counter
	RateLimitRejectionsTotal prometheus.Counter
	AuthFailuresTotal        prometheus.Counter

	SyncDeliveriesTotal   *prometheus.CounterVec
	SyncRetriesTotal      prometheus.Counter
	SyncDroppedTotal      *prometheus.CounterVec
	CheckpointSavesTotal  *prometheus.CounterVec
	SourceFetchesTotal    *prometheus.CounterVec
	DeliveryDuration      prometheus.Histogram
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_ingested_total",
				Help: "Total documents upserted into the vector index.",
			},
		),
		DocsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_deleted_total",
				Help: "Total documents deleted from the vector index.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		RateLimitRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limit_rejections_total",
				Help: "Total requests rejected by the sliding-window rate limiter.",
			},
		),
		AuthFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_failures_total",
				Help: "Total requests rejected for missing or invalid auth tokens.",
			},
		),
		SyncDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_deliveries_total",
				Help: "Total change-event deliveries by outcome (synced, abandoned).",
			},
			[]string{"outcome"},
		),
		SyncRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_retries_total",
				Help: "Total delivery retry attempts beyond the first.",
			},
		),
		SyncDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_dropped_total",
				Help: "Total change events dropped by reason (undecodable, missing_document).",
			},
			[]string{"reason"},
		),
		CheckpointSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkpoint_saves_total",
				Help: "Total checkpoint persistence attempts by status (ok, error).",
			},
			[]string{"status"},
		),
		SourceFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_fetches_total",
				Help: "Total change-source fetch cycles by status (ok, error).",
			},
			[]string{"status"},
		),
		DeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sync_delivery_duration_seconds",
				Help:    "End-to-end delivery latency per change event, including retries.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsIngestedTotal,
		m.DocsDeletedTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.SyncDeliveriesTotal,
		m.SyncRetriesTotal,
		m.SyncDroppedTotal,
		m.CheckpointSavesTotal,
		m.SourceFetchesTotal,
		m.DeliveryDuration,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
