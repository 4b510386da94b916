// internal/scheduler/batch_test.go
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pricehawk/pricehawk/internal/kv"
)

func TestDomainPacer_EnforcesSpacing(t *testing.T) {
	pacer := NewDomainPacer(nil, map[string]time.Duration{"example.com": 80 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := pacer.Wait(ctx, "example.com"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 160*time.Millisecond {
		t.Errorf("three requests finished in %v, want >= 160ms spacing", elapsed)
	}
}

func TestDomainPacer_DomainsIndependent(t *testing.T) {
	pacer := NewDomainPacer(nil, map[string]time.Duration{
		"a.com": 500 * time.Millisecond,
		"b.com": 500 * time.Millisecond,
	})
	ctx := context.Background()

	start := time.Now()
	pacer.Wait(ctx, "a.com")
	pacer.Wait(ctx, "b.com")
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("first hits to distinct domains took %v, want no spacing wait", elapsed)
	}
}

func TestDomainPacer_SeedsFromStore(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	first := NewDomainPacer(store, map[string]time.Duration{"example.com": 150 * time.Millisecond})
	if err := first.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// A fresh pacer sharing the store must honor the recorded timestamp.
	second := NewDomainPacer(store, map[string]time.Duration{"example.com": 150 * time.Millisecond})
	start := time.Now()
	if err := second.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("fresh pacer waited only %v, want spacing carried over via store", elapsed)
	}
}

func TestDomainPacer_CancelledContext(t *testing.T) {
	pacer := NewDomainPacer(nil, map[string]time.Duration{"example.com": time.Minute})
	ctx := context.Background()

	if err := pacer.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := pacer.Wait(ctx, "example.com"); err == nil {
		t.Error("expected context error while waiting out a one-minute gap")
	}
}

func TestFetchBatch_CollectsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("batch pacing uses real delays")
	}

	pacer := NewDomainPacer(nil, map[string]time.Duration{})
	o := NewOrchestrator(pacer, nil)

	prices := map[string]float64{
		"https://a.com/p1": 19.99,
		"https://b.com/p2": 5.00,
	}
	fetch := func(ctx context.Context, url string) *float64 {
		if p, ok := prices[url]; ok {
			return &p
		}
		return nil
	}

	urls := []string{"https://a.com/p1", "https://b.com/p2", "https://c.com/p3"}
	results := o.FetchBatch(context.Background(), urls, 3, fetch)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if p := results["https://a.com/p1"]; p == nil || *p != 19.99 {
		t.Errorf("p1 = %v, want 19.99", p)
	}
	if p := results["https://b.com/p2"]; p == nil || *p != 5.00 {
		t.Errorf("p2 = %v, want 5.00", p)
	}
	if results["https://c.com/p3"] != nil {
		t.Error("failed URL must map to nil without affecting the others")
	}
}

func TestFetchBatch_DeduplicatesURLs(t *testing.T) {
	if testing.Short() {
		t.Skip("batch pacing uses real delays")
	}

	o := NewOrchestrator(NewDomainPacer(nil, map[string]time.Duration{}), nil)

	var calls int32
	fetch := func(ctx context.Context, url string) *float64 {
		atomic.AddInt32(&calls, 1)
		price := 1.0
		return &price
	}

	urls := []string{"https://a.com/p", "https://a.com/p", "", "https://a.com/p"}
	results := o.FetchBatch(context.Background(), urls, 2, fetch)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("duplicate URL fetched %d times, want 1", got)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result entry, got %d", len(results))
	}
}

func TestFetchBatch_BoundsConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("batch pacing uses real delays")
	}

	o := NewOrchestrator(NewDomainPacer(nil, map[string]time.Duration{}), nil)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	fetch := func(ctx context.Context, url string) *float64 {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(150 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.com/p", i)
	}
	o.FetchBatch(context.Background(), urls, 2, fetch)

	if peak > 2 {
		t.Errorf("observed %d concurrent fetches, limit is 2", peak)
	}
}

func TestFetchBatch_CancelledContextLeavesNils(t *testing.T) {
	o := NewOrchestrator(NewDomainPacer(nil, map[string]time.Duration{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, url string) *float64 {
		t.Error("fetch must not run after cancellation")
		return nil
	}
	urls := []string{"https://a.com/p", "https://b.com/p", "https://c.com/p"}
	results := o.FetchBatch(ctx, urls, 1, fetch)

	// Even URLs the scheduling loop never reached must appear in the map.
	if len(results) != len(urls) {
		t.Fatalf("cancelled batch returned %d entries, want %d", len(results), len(urls))
	}
	for _, url := range urls {
		if p, ok := results[url]; !ok || p != nil {
			t.Errorf("cancelled batch should report nil for %s, got %v (present=%v)", url, p, ok)
		}
	}
}
