// internal/scheduler/batch.go

// Package scheduler coordinates batch price fetches: it bounds concurrency,
// jitters request starts so workers never fire in lockstep, and enforces a
// per-domain minimum gap between page loads.
package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pricehawk/pricehawk/internal/utils"
)

const (
	// DefaultMaxConcurrent bounds simultaneous browser sessions.
	DefaultMaxConcurrent = 5

	jitterMin = 500 * time.Millisecond
	jitterMax = 1500 * time.Millisecond

	// globalRate caps total request throughput across all domains.
	globalRate  = rate.Limit(2)
	globalBurst = 4
)

// FetchFunc fetches a single URL and returns the extracted price, or nil
// when no price could be obtained.
type FetchFunc func(ctx context.Context, url string) *float64

// Orchestrator runs batches of URL fetches with bounded concurrency.
type Orchestrator struct {
	pacer   *DomainPacer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil pacer gets default spacing
// with no shared store.
func NewOrchestrator(pacer *DomainPacer, logger *slog.Logger) *Orchestrator {
	if pacer == nil {
		pacer = NewDomainPacer(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		pacer:   pacer,
		limiter: rate.NewLimiter(globalRate, globalBurst),
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// FetchBatch fetches every URL concurrently, at most maxConcurrent at a
// time, and returns a price per URL. A URL that fails maps to nil; one
// failure never aborts the rest of the batch. Duplicate URLs are fetched
// once.
func (o *Orchestrator) FetchBatch(ctx context.Context, urls []string, maxConcurrent int, fetch FetchFunc) map[string]*float64 {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	// Every input URL gets an entry up front, so a cancelled batch still
	// reports nil for work it never reached.
	results := make(map[string]*float64, len(urls))
	var resultsMu sync.Mutex

	queue := make([]string, 0, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, dup := results[url]; dup {
			continue
		}
		results[url] = nil
		queue = append(queue, url)
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup

	started := time.Now()
	for _, url := range queue {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch cancelled; remaining URLs stay nil.
			break
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			defer sem.Release(1)

			price := o.fetchOne(ctx, url, fetch)

			resultsMu.Lock()
			results[url] = price
			resultsMu.Unlock()
		}(url)
	}

	wg.Wait()

	o.logger.Info("batch complete",
		slog.Int("urls", len(queue)),
		slog.Int("found", countFound(results)),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return results
}

// fetchOne applies the pre-request pacing (start jitter, global throughput
// cap, per-domain spacing) and then delegates to fetch.
func (o *Orchestrator) fetchOne(ctx context.Context, url string, fetch FetchFunc) *float64 {
	if err := sleepJitter(ctx); err != nil {
		return nil
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil
	}

	domain := utils.Domain(url)
	if err := o.pacer.Wait(ctx, domain); err != nil {
		return nil
	}

	o.logger.Debug("fetching", slog.String("domain", domain), slog.String("url", utils.TruncateURL(url, 80)))
	return fetch(ctx, url)
}

// sleepJitter desynchronizes worker start times.
func sleepJitter(ctx context.Context) error {
	jitter := jitterMin + time.Duration(rand.Int63n(int64(jitterMax-jitterMin)))
	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func countFound(results map[string]*float64) int {
	n := 0
	for _, price := range results {
		if price != nil {
			n++
		}
	}
	return n
}
