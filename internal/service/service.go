// internal/service/service.go

// Package service exposes the two entry points callers use: FetchPrice for
// a single product page and FetchPricesBatch for many. It chains the
// response cache, the stealth browser path, and the plain-HTTP legacy
// fallback, and reports every outcome to telemetry.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/extract"
	"github.com/pricehawk/pricehawk/internal/identity"
	"github.com/pricehawk/pricehawk/internal/scheduler"
	"github.com/pricehawk/pricehawk/internal/stealth"
	"github.com/pricehawk/pricehawk/internal/telemetry"
	"github.com/pricehawk/pricehawk/internal/utils"
)

// StealthExtractor runs one fingerprinted browser extraction.
type StealthExtractor interface {
	Extract(ctx context.Context, url string, id *identity.Identity) stealth.Result
}

// IdentityPool hands out identities and records their fate. Implemented by
// identity.Manager.
type IdentityPool interface {
	Acquire(ctx context.Context) (*identity.Identity, func())
	MarkSuccess(ctx context.Context, id *identity.Identity)
	MarkBurned(ctx context.Context, id *identity.Identity)
}

// LegacyFallback is the stateless plain-HTTP path.
type LegacyFallback interface {
	FetchPrice(ctx context.Context, url string) (float64, bool)
}

// Options configures a Service. Cache, Identities+Extractor, Monitor and
// Orchestrator are each optional; a Service with none of them still works
// through the legacy path.
type Options struct {
	Cache        *cache.ResponseCache
	Identities   IdentityPool
	Extractor    StealthExtractor
	Legacy       LegacyFallback
	Monitor      *telemetry.Monitor
	Orchestrator *scheduler.Orchestrator
	Logger       *slog.Logger
}

// Service implements price fetching over defended product pages.
type Service struct {
	cache        *cache.ResponseCache
	identities   IdentityPool
	extractor    StealthExtractor
	legacy       LegacyFallback
	monitor      *telemetry.Monitor
	orchestrator *scheduler.Orchestrator
	logger       *slog.Logger
}

// New builds a Service, defaulting the legacy fetcher, orchestrator and
// monitor when not supplied.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	legacy := opts.Legacy
	if legacy == nil {
		legacy = extract.NewLegacyFetcher(logger)
	}
	orchestrator := opts.Orchestrator
	if orchestrator == nil {
		orchestrator = scheduler.NewOrchestrator(nil, logger)
	}
	monitor := opts.Monitor
	if monitor == nil {
		monitor = telemetry.NewMonitor(nil, nil, nil, logger)
	}
	return &Service{
		cache:        opts.Cache,
		identities:   opts.Identities,
		extractor:    opts.Extractor,
		legacy:       legacy,
		monitor:      monitor,
		orchestrator: orchestrator,
		logger:       logger.With(slog.String("component", "service")),
	}
}

// FetchPrice returns the price found on a product page, or nil when every
// path fails. Order: cache, stealth browser, legacy HTTP.
func (s *Service) FetchPrice(ctx context.Context, url string) *float64 {
	if url == "" {
		return nil
	}
	domain := utils.Domain(url)

	if price := s.fromCache(ctx, domain, url); price != nil {
		return price
	}

	if s.extractor != nil && s.identities != nil {
		price, attempted := s.fetchStealth(ctx, domain, url)
		if attempted {
			return price
		}
		// No identity available right now; fall through to the legacy path.
	}

	return s.fetchLegacy(ctx, domain, url)
}

// FetchPricesBatch fetches every URL with bounded concurrency and returns a
// price (or nil) per URL.
func (s *Service) FetchPricesBatch(ctx context.Context, urls []string, maxConcurrent int) map[string]*float64 {
	return s.orchestrator.FetchBatch(ctx, urls, maxConcurrent, s.FetchPrice)
}

// fromCache serves a price from recently fetched page content. A cached
// page that no longer parses falls through to a live fetch.
func (s *Service) fromCache(ctx context.Context, domain, url string) *float64 {
	if s.cache == nil {
		return nil
	}
	content, ok := s.cache.Get(ctx, url)
	if !ok {
		return nil
	}
	price, ok := extract.PriceFromHTML(domain, content)
	if !ok {
		s.logger.Debug("cached page no longer parses, refetching",
			slog.String("url", utils.TruncateURL(url, 80)))
		return nil
	}
	s.monitor.ObserveCacheHit()
	s.logger.Debug("cache hit", slog.String("domain", domain))
	return &price
}

// fetchStealth runs one browser extraction with a leased identity.
// attempted is false when no identity could be acquired, meaning the caller
// should try the legacy path instead.
func (s *Service) fetchStealth(ctx context.Context, domain, url string) (price *float64, attempted bool) {
	id, release := s.identities.Acquire(ctx)
	if id == nil {
		s.logger.Warn("no healthy identity available", slog.String("domain", domain))
		return nil, false
	}
	defer release()

	start := time.Now()
	result := s.extractor.Extract(ctx, url, id)
	elapsed := time.Since(start)

	attempt := telemetry.ExtractionAttempt{
		Domain:       domain,
		URL:          utils.TruncateURL(url, 100),
		Success:      result.Success,
		Method:       id.ID,
		FailureType:  string(result.FailureType),
		ResponseTime: elapsed,
		Timestamp:    time.Now(),
	}
	s.monitor.Record(ctx, attempt)

	if result.Success {
		s.identities.MarkSuccess(ctx, id)
		if s.cache != nil {
			s.cache.Put(ctx, url, result.Content)
		}
		s.logger.Info("price extracted",
			slog.String("domain", domain),
			slog.Float64("price", result.Price),
			slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
		)
		return &result.Price, true
	}

	if result.FailureType == stealth.FailureCaptcha {
		s.identities.MarkBurned(ctx, id)
		s.monitor.ObserveIdentityBurn()
	}
	s.logger.Warn("stealth extraction failed",
		slog.String("domain", domain),
		slog.String("failure", string(result.FailureType)),
		slog.String("identity", id.ID),
	)
	return nil, true
}

// fetchLegacy is the stateless plain-HTTP path, used when the stealth
// subsystem is unavailable or has no identity to offer.
func (s *Service) fetchLegacy(ctx context.Context, domain, url string) *float64 {
	start := time.Now()
	value, ok := s.legacy.FetchPrice(ctx, url)
	elapsed := time.Since(start)

	failure := ""
	if !ok {
		failure = string(stealth.FailureNoPrice)
	}
	s.monitor.Record(ctx, telemetry.ExtractionAttempt{
		Domain:       domain,
		URL:          utils.TruncateURL(url, 100),
		Success:      ok,
		Method:       telemetry.MethodLegacy,
		FailureType:  failure,
		ResponseTime: elapsed,
		Timestamp:    time.Now(),
	})

	if !ok {
		return nil
	}
	return &value
}
