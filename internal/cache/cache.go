// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pricehawk/pricehawk/internal/kv"
	"github.com/pricehawk/pricehawk/internal/utils"
)

// DefaultTTL bounds how long a fetched page is reused before the network is
// consulted again. Staleness beyond this is the scheduler's concern.
const DefaultTTL = time.Hour

// ResponseCache stores successful page content keyed by URL hash. A hit
// short-circuits the entire stealth path, so no browser is launched for a
// recently fetched page. Cache trouble is never an error: a broken cache
// degrades to a miss.
type ResponseCache struct {
	store  kv.Store
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a ResponseCache with the given TTL; zero means DefaultTTL.
func New(store kv.Store, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{
		store:  store,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cache")),
	}
}

func cacheKey(url string) string {
	return "cache:" + utils.URLHash(url)
}

// Get returns cached page content for a URL, if present and fresh.
func (c *ResponseCache) Get(ctx context.Context, url string) (string, bool) {
	content, err := c.store.Get(ctx, cacheKey(url))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("cache lookup failed", slog.String("error", err.Error()))
		}
		return "", false
	}
	return content, true
}

// Put stores page content for a URL. Empty content is not cached.
func (c *ResponseCache) Put(ctx context.Context, url, content string) {
	if url == "" || content == "" {
		return
	}
	if err := c.store.Set(ctx, cacheKey(url), content, c.ttl); err != nil {
		c.logger.Warn("cache store failed", slog.String("error", err.Error()))
	}
}
