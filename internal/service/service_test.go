// internal/service/service_test.go
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/identity"
	"github.com/pricehawk/pricehawk/internal/kv"
	"github.com/pricehawk/pricehawk/internal/scheduler"
	"github.com/pricehawk/pricehawk/internal/stealth"
)

const pricedPage = `<html><div id="corePrice_feature_div"><span class="a-offscreen">$42.00</span></div></html>`

type fakePool struct {
	mu       sync.Mutex
	id       *identity.Identity
	released int
	success  int
	burned   int
}

func (p *fakePool) Acquire(ctx context.Context) (*identity.Identity, func()) {
	if p.id == nil {
		return nil, func() {}
	}
	return p.id, func() {
		p.mu.Lock()
		p.released++
		p.mu.Unlock()
	}
}

func (p *fakePool) MarkSuccess(ctx context.Context, id *identity.Identity) {
	p.mu.Lock()
	p.success++
	p.mu.Unlock()
}

func (p *fakePool) MarkBurned(ctx context.Context, id *identity.Identity) {
	p.mu.Lock()
	p.burned++
	p.mu.Unlock()
}

type fakeExtractor struct {
	calls  int32
	result stealth.Result
}

func (e *fakeExtractor) Extract(ctx context.Context, url string, id *identity.Identity) stealth.Result {
	atomic.AddInt32(&e.calls, 1)
	return e.result
}

type fakeLegacy struct {
	calls int32
	price float64
	ok    bool
}

func (l *fakeLegacy) FetchPrice(ctx context.Context, url string) (float64, bool) {
	atomic.AddInt32(&l.calls, 1)
	return l.price, l.ok
}

func testPoolIdentity() *identity.Identity {
	id := identity.Catalog()[0]
	return &id
}

func newFastOrchestrator() *scheduler.Orchestrator {
	return scheduler.NewOrchestrator(
		scheduler.NewDomainPacer(nil, map[string]time.Duration{}), nil)
}

func TestFetchPrice_CacheHitSkipsExtraction(t *testing.T) {
	ctx := context.Background()
	responseCache := cache.New(kv.NewMemoryStore(), 0, nil)
	responseCache.Put(ctx, "https://www.amazon.com/dp/B000", pricedPage)

	extractor := &fakeExtractor{}
	legacy := &fakeLegacy{}
	svc := New(Options{
		Cache:      responseCache,
		Identities: &fakePool{id: testPoolIdentity()},
		Extractor:  extractor,
		Legacy:     legacy,
	})

	price := svc.FetchPrice(ctx, "https://www.amazon.com/dp/B000")
	if price == nil || *price != 42.00 {
		t.Fatalf("expected 42.00 from cache, got %v", price)
	}
	if atomic.LoadInt32(&extractor.calls) != 0 {
		t.Error("cache hit must not launch a browser")
	}
	if atomic.LoadInt32(&legacy.calls) != 0 {
		t.Error("cache hit must not touch the legacy path")
	}
}

func TestFetchPrice_StealthSuccessMarksAndCaches(t *testing.T) {
	ctx := context.Background()
	responseCache := cache.New(kv.NewMemoryStore(), 0, nil)
	pool := &fakePool{id: testPoolIdentity()}
	extractor := &fakeExtractor{result: stealth.Result{
		Success: true,
		Price:   19.95,
		Content: pricedPage,
	}}

	svc := New(Options{
		Cache:      responseCache,
		Identities: pool,
		Extractor:  extractor,
		Legacy:     &fakeLegacy{},
	})

	price := svc.FetchPrice(ctx, "https://www.amazon.com/dp/B001")
	if price == nil || *price != 19.95 {
		t.Fatalf("expected 19.95, got %v", price)
	}
	if pool.success != 1 {
		t.Errorf("MarkSuccess called %d times, want 1", pool.success)
	}
	if pool.released != 1 {
		t.Errorf("identity lease released %d times, want 1", pool.released)
	}

	// The fetched page is now cached: a second fetch parses it without a
	// second extraction.
	svc.FetchPrice(ctx, "https://www.amazon.com/dp/B001")
	if got := atomic.LoadInt32(&extractor.calls); got != 1 {
		t.Errorf("expected 1 extraction total, got %d", got)
	}
}

func TestFetchPrice_CaptchaBurnsIdentity(t *testing.T) {
	pool := &fakePool{id: testPoolIdentity()}
	extractor := &fakeExtractor{result: stealth.Result{
		Success:     false,
		FailureType: stealth.FailureCaptcha,
	}}
	legacy := &fakeLegacy{price: 9.99, ok: true}

	svc := New(Options{
		Identities: pool,
		Extractor:  extractor,
		Legacy:     legacy,
	})

	price := svc.FetchPrice(context.Background(), "https://www.amazon.com/dp/B002")
	if price != nil {
		t.Errorf("CAPTCHA attempt must yield nil, got %v", *price)
	}
	if pool.burned != 1 {
		t.Errorf("MarkBurned called %d times, want 1", pool.burned)
	}
	if pool.released != 1 {
		t.Error("identity lease must be released after a failed attempt")
	}
	if atomic.LoadInt32(&legacy.calls) != 0 {
		t.Error("a completed stealth attempt must not retry through legacy")
	}
}

func TestFetchPrice_NoIdentityFallsBackToLegacy(t *testing.T) {
	extractor := &fakeExtractor{}
	legacy := &fakeLegacy{price: 5.49, ok: true}

	svc := New(Options{
		Identities: &fakePool{id: nil}, // all burned or leased
		Extractor:  extractor,
		Legacy:     legacy,
	})

	price := svc.FetchPrice(context.Background(), "https://www.amazon.com/dp/B003")
	if price == nil || *price != 5.49 {
		t.Fatalf("expected legacy price 5.49, got %v", price)
	}
	if atomic.LoadInt32(&extractor.calls) != 0 {
		t.Error("extractor must not run without an identity")
	}
}

func TestFetchPrice_LegacyOnlyConfiguration(t *testing.T) {
	legacy := &fakeLegacy{price: 12.00, ok: true}
	svc := New(Options{Legacy: legacy})

	price := svc.FetchPrice(context.Background(), "https://shop.example.com/item")
	if price == nil || *price != 12.00 {
		t.Fatalf("expected 12.00 via legacy-only service, got %v", price)
	}
}

func TestFetchPrice_AllPathsFailYieldsNil(t *testing.T) {
	svc := New(Options{Legacy: &fakeLegacy{ok: false}})

	if price := svc.FetchPrice(context.Background(), "https://shop.example.com/item"); price != nil {
		t.Errorf("expected nil when every path fails, got %v", *price)
	}
}

func TestFetchPrice_EmptyURL(t *testing.T) {
	svc := New(Options{Legacy: &fakeLegacy{price: 1, ok: true}})

	if price := svc.FetchPrice(context.Background(), ""); price != nil {
		t.Error("empty URL must return nil")
	}
}

func TestFetchPricesBatch_MixedResults(t *testing.T) {
	if testing.Short() {
		t.Skip("batch pacing uses real delays")
	}

	pool := &fakePool{id: testPoolIdentity()}
	extractor := &fakeExtractor{result: stealth.Result{
		Success: true,
		Price:   33.00,
		Content: pricedPage,
	}}

	svc := New(Options{
		Identities:   pool,
		Extractor:    extractor,
		Legacy:       &fakeLegacy{ok: false},
		Orchestrator: newFastOrchestrator(),
	})

	urls := []string{"https://a.com/p1", "https://b.com/p2"}
	results := svc.FetchPricesBatch(context.Background(), urls, 2)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, url := range urls {
		if p := results[url]; p == nil || *p != 33.00 {
			t.Errorf("%s = %v, want 33.00", url, p)
		}
	}
}
