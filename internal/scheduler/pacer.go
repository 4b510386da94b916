// internal/scheduler/pacer.go
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pricehawk/pricehawk/internal/kv"
)

// DefaultDomainSpacing is the minimum gap between requests to domains not
// listed in the table.
const DefaultDomainSpacing = 2 * time.Second

// DefaultSpacingTable spaces requests per domain. The most aggressively
// defended domains get the widest gaps.
func DefaultSpacingTable() map[string]time.Duration {
	return map[string]time.Duration{
		"amazon.com":  8 * time.Second,
		"bestbuy.com": 5 * time.Second,
		"walmart.com": 5 * time.Second,
		"target.com":  4 * time.Second,
		"etsy.com":    3 * time.Second,
	}
}

// DomainPacer enforces per-domain minimum spacing between requests.
// Reservations are serialized in-process; the last-request timestamp is also
// written through to the shared store so sibling workers can seed from it.
type DomainPacer struct {
	mu       sync.Mutex
	store    kv.Store
	spacing  map[string]time.Duration
	fallback time.Duration
	next     map[string]time.Time
}

// NewDomainPacer creates a pacer. A nil table uses DefaultSpacingTable; a
// nil store keeps pacing purely in-process.
func NewDomainPacer(store kv.Store, table map[string]time.Duration) *DomainPacer {
	if table == nil {
		table = DefaultSpacingTable()
	}
	return &DomainPacer{
		store:    store,
		spacing:  table,
		fallback: DefaultDomainSpacing,
		next:     make(map[string]time.Time),
	}
}

func (p *DomainPacer) spacingFor(domain string) time.Duration {
	if d, ok := p.spacing[domain]; ok {
		return d
	}
	return p.fallback
}

// Wait blocks until the domain's minimum spacing has elapsed since the last
// reserved request, then records this request's slot. Returns early only on
// context cancellation.
func (p *DomainPacer) Wait(ctx context.Context, domain string) error {
	spacing := p.spacingFor(domain)

	p.mu.Lock()
	now := time.Now()
	last, seen := p.next[domain]
	if !seen {
		last = p.seedFromStore(ctx, domain)
	}

	slot := now
	if earliest := last.Add(spacing); earliest.After(now) {
		slot = earliest
	}
	p.next[domain] = slot
	p.mu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.record(ctx, domain, slot)
	return nil
}

// seedFromStore reads the persisted last-request timestamp once per domain,
// so a freshly started worker does not burst at a domain another worker just
// hit. Best effort.
func (p *DomainPacer) seedFromStore(ctx context.Context, domain string) time.Time {
	if p.store == nil {
		return time.Time{}
	}
	value, err := p.store.Get(ctx, "ratelimit:"+domain+":last_request")
	if err != nil {
		return time.Time{}
	}
	unixNano, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, unixNano)
}

func (p *DomainPacer) record(ctx context.Context, domain string, at time.Time) {
	if p.store == nil {
		return
	}
	// TTL slightly beyond the widest spacing keeps the keyspace clean.
	p.store.Set(ctx, "ratelimit:"+domain+":last_request",
		strconv.FormatInt(at.UnixNano(), 10), time.Minute)
}
