// internal/telemetry/monitor.go
package telemetry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling span over which success rates are judged.
	DefaultWindow = 24 * time.Hour

	// alertMinAttempts avoids alerting on a handful of unlucky fetches.
	alertMinAttempts = 10
	alertThreshold   = 0.5
	alertCooldown    = time.Hour
)

// Notifier receives degraded-domain alerts. Implementations must be safe
// for concurrent use; slow delivery never stalls extraction.
type Notifier interface {
	Notify(ctx context.Context, health DomainHealth)
}

type attemptMark struct {
	at      time.Time
	success bool
}

// Monitor keeps a rolling in-memory success window per domain and raises an
// alert when a domain's rate collapses. Attempts are also mirrored to the
// AttemptLog and Prometheus when those are configured.
type Monitor struct {
	mu        sync.Mutex
	window    time.Duration
	attempts  map[string][]attemptMark
	lastAlert map[string]time.Time

	log      *AttemptLog
	metrics  *Metrics
	notifier Notifier
	logger   *slog.Logger
}

// NewMonitor creates a Monitor. log, metrics and notifier are each
// optional; nil disables that sink.
func NewMonitor(log *AttemptLog, metrics *Metrics, notifier Notifier, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		window:    DefaultWindow,
		attempts:  make(map[string][]attemptMark),
		lastAlert: make(map[string]time.Time),
		log:       log,
		metrics:   metrics,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "telemetry")),
	}
}

// Record registers one extraction attempt. It updates the rolling window,
// mirrors the attempt to the log and metrics, and fires an alert if the
// domain just crossed the degradation threshold.
func (m *Monitor) Record(ctx context.Context, a ExtractionAttempt) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	if m.metrics != nil {
		m.metrics.ObserveAttempt(a)
	}
	if m.log != nil {
		if err := m.log.Record(ctx, a); err != nil {
			m.logger.Warn("attempt log write failed", slog.String("error", err.Error()))
		}
	}

	health, alert := m.track(a)
	if alert {
		m.logger.Warn("domain success rate degraded",
			slog.String("domain", health.Domain),
			slog.Int("successes", health.Successes),
			slog.Int("total", health.Total),
		)
		if m.notifier != nil {
			go m.notifier.Notify(context.WithoutCancel(ctx), health)
		}
	}
}

// track appends the attempt to the domain window, prunes expired marks, and
// reports whether an alert should fire now.
func (m *Monitor) track(a ExtractionAttempt) (DomainHealth, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	marks := append(m.attempts[a.Domain], attemptMark{at: a.Timestamp, success: a.Success})
	marks = pruneExpired(marks, a.Timestamp.Add(-m.window))
	m.attempts[a.Domain] = marks

	health := summarize(a.Domain, marks)
	if !health.Alerting {
		return health, false
	}

	if last, ok := m.lastAlert[a.Domain]; ok && a.Timestamp.Sub(last) < alertCooldown {
		return health, false
	}
	m.lastAlert[a.Domain] = a.Timestamp
	return health, true
}

// DomainHealth reports the current rolling window for one domain.
func (m *Monitor) DomainHealth(domain string) DomainHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	marks := pruneExpired(m.attempts[domain], time.Now().Add(-m.window))
	m.attempts[domain] = marks
	return summarize(domain, marks)
}

// Snapshot reports every tracked domain, sorted by name.
func (m *Monitor) Snapshot() []DomainHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.window)
	snapshot := make([]DomainHealth, 0, len(m.attempts))
	for domain, marks := range m.attempts {
		marks = pruneExpired(marks, cutoff)
		m.attempts[domain] = marks
		if len(marks) == 0 {
			continue
		}
		snapshot = append(snapshot, summarize(domain, marks))
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Domain < snapshot[j].Domain })
	return snapshot
}

// ObserveCacheHit forwards a cache hit to metrics when configured.
func (m *Monitor) ObserveCacheHit() {
	if m.metrics != nil {
		m.metrics.ObserveCacheHit()
	}
}

// ObserveIdentityBurn forwards an identity burn to metrics when configured.
func (m *Monitor) ObserveIdentityBurn() {
	if m.metrics != nil {
		m.metrics.ObserveIdentityBurn()
	}
}

// StartSweeper periodically deletes attempt rows past retention. Returns
// immediately when no attempt log is configured; stops when ctx ends.
func (m *Monitor) StartSweeper(ctx context.Context, interval time.Duration) {
	if m.log == nil {
		return
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := m.log.Sweep(ctx)
				if err != nil {
					m.logger.Warn("retention sweep failed", slog.String("error", err.Error()))
					continue
				}
				if removed > 0 {
					m.logger.Info("retention sweep", slog.Int64("removed", removed))
				}
			}
		}
	}()
}

func pruneExpired(marks []attemptMark, cutoff time.Time) []attemptMark {
	idx := 0
	for idx < len(marks) && marks[idx].at.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return marks
	}
	return append([]attemptMark(nil), marks[idx:]...)
}

func summarize(domain string, marks []attemptMark) DomainHealth {
	health := DomainHealth{Domain: domain, Total: len(marks)}
	for _, mark := range marks {
		if mark.success {
			health.Successes++
		}
	}
	if health.Total > 0 {
		health.SuccessRate = float64(health.Successes) / float64(health.Total)
	}
	health.Alerting = health.Total >= alertMinAttempts && health.SuccessRate < alertThreshold
	return health
}
