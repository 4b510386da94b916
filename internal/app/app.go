// internal/app/app.go

// Package app assembles the full price extraction stack from configuration.
// Both binaries wire through here so CLI and server behave identically.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pricehawk/pricehawk/internal/browser"
	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/config"
	"github.com/pricehawk/pricehawk/internal/identity"
	"github.com/pricehawk/pricehawk/internal/kv"
	"github.com/pricehawk/pricehawk/internal/scheduler"
	"github.com/pricehawk/pricehawk/internal/service"
	"github.com/pricehawk/pricehawk/internal/stealth"
	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// App holds the assembled subsystems and their shared resources.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Service *service.Service
	Monitor *telemetry.Monitor

	attemptLog *telemetry.AttemptLog
	store      kv.Store
}

// New builds the application from config. Redis is used when an address is
// configured, otherwise all shared state lives in process memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Logging)

	store, err := newStore(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	attemptLog, err := telemetry.NewAttemptLog(cfg.Storage.AttemptDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt log: %w", err)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	monitor := telemetry.NewMonitor(attemptLog, metrics, nil, logger)
	monitor.StartSweeper(ctx, 0)

	manager := identity.NewManager(store, logger)
	browserConfig := browser.Config{
		Headless:      cfg.Browser.Headless,
		NavTimeout:    cfg.Browser.NavTimeout,
		DisableImages: cfg.Browser.DisableImages,
		ChromePath:    cfg.Browser.ChromePath,
	}
	extractor := stealth.NewExtractor(browserConfig, manager, nil, logger)

	pacer := scheduler.NewDomainPacer(store, spacingTable(cfg))
	orchestrator := scheduler.NewOrchestrator(pacer, logger)

	svc := service.New(service.Options{
		Cache:        cache.New(store, cfg.Cache.TTL, logger),
		Identities:   manager,
		Extractor:    extractor,
		Monitor:      monitor,
		Orchestrator: orchestrator,
		Logger:       logger,
	})

	return &App{
		Config:     cfg,
		Logger:     logger,
		Service:    svc,
		Monitor:    monitor,
		attemptLog: attemptLog,
		store:      store,
	}, nil
}

// Close releases the attempt log and any store connections.
func (a *App) Close() {
	if a.attemptLog != nil {
		a.attemptLog.Close()
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		closer.Close()
	}
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newStore(ctx context.Context, cfg config.RedisConfig) (kv.Store, error) {
	if cfg.Addr == "" {
		return kv.NewMemoryStore(), nil
	}
	store, err := kv.NewRedisStore(ctx, kv.RedisConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return store, nil
}

func spacingTable(cfg *config.Config) map[string]time.Duration {
	if len(cfg.Batch.DomainSpacing) == 0 {
		return nil
	}
	table := scheduler.DefaultSpacingTable()
	for domain, spacing := range cfg.Batch.DomainSpacing {
		table[domain] = spacing
	}
	return table
}
