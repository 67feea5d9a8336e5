// Package benchmark contains Go benchmarks for the local embedder, the
// sliding-window rate limiter, and the vector index adapter, measuring
// throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/embeddings"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/config"
)

// BenchmarkLocalEmbed measures per-document embedding throughput at the
// default dimensionality.
func BenchmarkLocalEmbed(b *testing.B) {
	e := embeddings.NewLocal(256)
	ctx := context.Background()
	text := "a medium length document body about vector synchronization with several distinct terms across the sentence"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Embed(ctx, text); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRateLimiterAllow measures limiter admission cost for a single
// origin with a large window.
func BenchmarkRateLimiterAllow(b *testing.B) {
	l := ratelimit.New(time.Minute)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Allow("bench-origin", 1<<30)
	}
}

// BenchmarkRateLimiterManyOrigins measures admission cost when requests
// spread across many origins.
func BenchmarkRateLimiterManyOrigins(b *testing.B) {
	l := ratelimit.New(time.Minute)
	origins := make([]string, 128)
	for i := range origins {
		origins[i] = fmt.Sprintf("origin-%d", i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Allow(origins[i%len(origins)], 1<<30)
	}
}

// BenchmarkIndexUpsert measures single-document upsert latency into a
// persistent index.
func BenchmarkIndexUpsert(b *testing.B) {
	idx, err := index.New(config.IndexConfig{
		DataDir:    b.TempDir(),
		Collection: "bench",
	}, embeddings.NewLocal(64).Embed)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("doc-%d", i)
		if err := idx.Upsert(ctx, id, "benchmark document body with several terms", nil, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIndexQuery measures similarity-query latency over a 1 000
// document collection.
func BenchmarkIndexQuery(b *testing.B) {
	idx, err := index.New(config.IndexConfig{
		DataDir:    b.TempDir(),
		Collection: "bench",
	}, embeddings.NewLocal(64).Embed)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("doc-%d", i)
		text := fmt.Sprintf("document %d about topic %d with shared vocabulary", i, i%10)
		if err := idx.Upsert(ctx, id, text, nil, nil); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Query(ctx, "document about topic with shared vocabulary", 10); err != nil {
			b.Fatal(err)
		}
	}
}
