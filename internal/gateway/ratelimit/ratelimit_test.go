package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(time.Minute)

	for i := 0; i < 5; i++ {
		if !l.Allow("10.0.0.1", 5) {
			t.Fatalf("request %d: expected allow", i+1)
		}
	}
	if l.Allow("10.0.0.1", 5) {
		t.Error("request 6: expected reject at limit")
	}
}

func TestRejectedRequestNotRecorded(t *testing.T) {
	l := New(time.Minute)

	for i := 0; i < 3; i++ {
		l.Allow("origin", 3)
	}
	// Hammer the full window; rejections must not extend it.
	for i := 0; i < 10; i++ {
		if l.Allow("origin", 3) {
			t.Fatalf("rejection %d: expected reject", i+1)
		}
	}

	l.mu.Lock()
	recorded := len(l.windows["origin"])
	l.mu.Unlock()
	if recorded != 3 {
		t.Errorf("expected 3 recorded timestamps, got %d", recorded)
	}
}

func TestWindowSlides(t *testing.T) {
	l := New(50 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if !l.Allow("origin", 2) {
			t.Fatalf("request %d: expected allow", i+1)
		}
	}
	if l.Allow("origin", 2) {
		t.Fatal("expected reject at limit")
	}

	time.Sleep(60 * time.Millisecond)

	if !l.Allow("origin", 2) {
		t.Error("expected allow after window elapsed")
	}
}

func TestOriginsIndependent(t *testing.T) {
	l := New(time.Minute)

	for i := 0; i < 2; i++ {
		l.Allow("origin-a", 2)
	}
	if l.Allow("origin-a", 2) {
		t.Error("origin-a: expected reject at limit")
	}
	if !l.Allow("origin-b", 2) {
		t.Error("origin-b: expected allow, limits are per origin")
	}
}

func TestReset(t *testing.T) {
	l := New(time.Minute)

	for i := 0; i < 2; i++ {
		l.Allow("origin", 2)
	}
	if l.Allow("origin", 2) {
		t.Fatal("expected reject before reset")
	}

	l.Reset("origin")

	if !l.Allow("origin", 2) {
		t.Error("expected allow after reset")
	}
}

func TestConcurrentAllow(t *testing.T) {
	l := New(time.Minute)

	const workers = 20
	const perWorker = 10
	var wg sync.WaitGroup
	allowed := make(chan bool, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			origin := fmt.Sprintf("origin-%d", id%4)
			for i := 0; i < perWorker; i++ {
				allowed <- l.Allow(origin, 25)
			}
		}(w)
	}
	wg.Wait()
	close(allowed)

	// 4 origins with limit 25 and 50 requests each: exactly 100 admitted.
	var count int
	for a := range allowed {
		if a {
			count++
		}
	}
	if count != 100 {
		t.Errorf("expected exactly 100 allowed across origins, got %d", count)
	}
}
