// internal/extract/legacy.go
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/pricehawk/pricehawk/internal/utils"
)

// userAgents rotate across legacy requests to reduce blocking. The stealth
// path carries full identities; this list only serves the stateless
// fallback.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

const (
	legacyTimeout    = 15 * time.Second
	legacyMaxRetries = 2
	maxBodySize      = 10 << 20 // 10 MiB
)

// LegacyFetcher is the stateless single-shot extraction path used when the
// stealth subsystem is unavailable (no healthy identity, or the identity
// store is unreachable). Plain HTTP with browser-shaped headers; no browser,
// no persisted state.
type LegacyFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewLegacyFetcher creates a LegacyFetcher.
func NewLegacyFetcher(logger *slog.Logger) *LegacyFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LegacyFetcher{
		client: &http.Client{Timeout: legacyTimeout},
		logger: logger.With(slog.String("component", "legacy")),
	}
}

// FetchPrice performs a direct HTTP fetch and extracts a price from the
// response body. Returns false on any failure; legacy extraction never
// surfaces errors to callers.
func (f *LegacyFetcher) FetchPrice(ctx context.Context, url string) (float64, bool) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		f.logger.Warn("legacy fetch failed",
			slog.String("url", utils.TruncateURL(url, 120)),
			slog.String("error", err.Error()))
		return 0, false
	}
	return PriceFromHTML(utils.Domain(url), body)
}

// Fetch returns the raw page body, retrying transient failures with a short
// backoff and a fresh user agent per attempt.
func (f *LegacyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.fetch(ctx, url)
}

func (f *LegacyFetcher) fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= legacyMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt)*2*time.Second +
				time.Duration(rand.Float64()*float64(time.Second))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := f.request(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("all retries failed: %w", lastErr)
}

func (f *LegacyFetcher) request(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
