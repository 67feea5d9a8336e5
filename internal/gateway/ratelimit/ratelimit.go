// Package ratelimit implements the gateway's per-origin sliding-window rate
// limiter. State is in-memory and ephemeral: limits reset on restart, which
// is accepted for admission control.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks, per origin, the timestamps of requests inside a sliding
// window. It is owned by the gateway and safe for concurrent use; a single
// mutex guards the window map, which is sufficient at admission-control
// request rates.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	window  time.Duration
}

// New creates a Limiter with the given window length (60s for the
// per-minute limits the gateway enforces). A background sweep removes
// origins that have gone idle for two windows.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string][]time.Time),
		window:  window,
	}
	go l.cleanup()
	return l
}

// Allow records a request from origin and reports whether it fits within
// limit. Timestamps older than the window are pruned lazily on each call.
// When the origin already has limit or more requests in the window, the
// request is rejected and no timestamp is recorded.
func (l *Limiter) Allow(origin string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	timestamps := l.windows[origin]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.windows[origin] = kept
		return false
	}

	l.windows[origin] = append(kept, now)
	return true
}

// Reset clears the window for a specific origin.
func (l *Limiter) Reset(origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, origin)
}

// cleanup periodically removes idle origins to prevent unbounded growth.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-2 * l.window)
		for origin, timestamps := range l.windows {
			if len(timestamps) == 0 || timestamps[len(timestamps)-1].Before(cutoff) {
				delete(l.windows, origin)
			}
		}
		l.mu.Unlock()
	}
}
