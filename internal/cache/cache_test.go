// internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pricehawk/pricehawk/internal/kv"
)

func TestResponseCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemoryStore(), 0, nil)

	url := "https://www.example.com/product/1"
	c.Put(ctx, url, "<html>page</html>")

	content, ok := c.Get(ctx, url)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if content != "<html>page</html>" {
		t.Errorf("content mismatch: %q", content)
	}
}

func TestResponseCache_MissForUnknownURL(t *testing.T) {
	c := New(kv.NewMemoryStore(), 0, nil)

	if _, ok := c.Get(context.Background(), "https://example.com/missing"); ok {
		t.Error("expected miss for unknown URL")
	}
}

func TestResponseCache_DistinctURLsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemoryStore(), 0, nil)

	c.Put(ctx, "https://example.com/a", "page-a")
	c.Put(ctx, "https://example.com/b", "page-b")

	if content, _ := c.Get(ctx, "https://example.com/a"); content != "page-a" {
		t.Errorf("expected page-a, got %q", content)
	}
	if content, _ := c.Get(ctx, "https://example.com/b"); content != "page-b" {
		t.Errorf("expected page-b, got %q", content)
	}
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemoryStore(), 10*time.Millisecond, nil)

	c.Put(ctx, "https://example.com/p", "content")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "https://example.com/p"); ok {
		t.Error("expected expired entry to be treated as absent")
	}
}

func TestResponseCache_EmptyContentNotCached(t *testing.T) {
	ctx := context.Background()
	c := New(kv.NewMemoryStore(), 0, nil)

	c.Put(ctx, "https://example.com/p", "")

	if _, ok := c.Get(ctx, "https://example.com/p"); ok {
		t.Error("empty content must not produce a hit")
	}
}
