// internal/identity/manager.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/pricehawk/pricehawk/internal/kv"
)

// Rotation and burn policy. An identity is rotated (counter and cookie jar
// reset) after a threshold of successful requests drawn from
// [minRequestsBeforeRotate, maxRequestsBeforeRotate), and burned for
// burnDuration when it triggers bot detection.
const (
	minRequestsBeforeRotate = 10
	maxRequestsBeforeRotate = 20

	burnDuration  = 24 * time.Hour
	counterTTL    = 24 * time.Hour
	cookieTTL     = 24 * time.Hour
	leaseDuration = 2 * time.Minute

	// Identities within this many requests of the least-used one are
	// considered tied and chosen among at random.
	nearTieMargin = 2
)

// Manager selects and rotates browser identities. All mutable identity state
// (request counters, burn windows, cookie jars, leases) lives in the injected
// store; the Manager itself holds only the immutable catalog, so concurrent
// extractions in any number of processes coordinate through the store alone.
type Manager struct {
	store      kv.Store
	identities []Identity
	logger     *slog.Logger
}

// NewManager creates a Manager over the built-in catalog.
func NewManager(store kv.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		identities: Catalog(),
		logger:     logger.With(slog.String("component", "identity")),
	}
}

// Identities returns the immutable catalog.
func (m *Manager) Identities() []Identity {
	return m.identities
}

func key(identityID, suffix string) string {
	return fmt.Sprintf("identity:%s:%s", identityID, suffix)
}

// GetHealthyIdentity returns the non-burned identity with the lowest request
// count, breaking near ties at random so repeated selection does not herd
// onto a single profile. Returns nil when every identity is burned or the
// store is unreachable; callers treat nil as "stealth unavailable", not as
// an error.
func (m *Manager) GetHealthyIdentity(ctx context.Context) *Identity {
	return m.pick(ctx, nil)
}

// Acquire selects a healthy identity and checks out a short advisory lease
// on it so two concurrent extractions do not share one cookie jar. The
// returned release function must be called when the extraction finishes.
// Returns nil when no identity is available.
func (m *Manager) Acquire(ctx context.Context) (*Identity, func()) {
	leased := make(map[string]bool)

	for range m.identities {
		picked := m.pick(ctx, leased)
		if picked == nil {
			return nil, nil
		}

		ok, err := m.store.SetNX(ctx, key(picked.ID, "lease"), "1", leaseDuration)
		if err != nil {
			// Store trouble: hand out the identity without a lease rather
			// than refusing service. The lease is an interference guard,
			// not a correctness requirement.
			m.logger.Warn("lease acquisition failed, proceeding unleased",
				slog.String("identity", picked.ID),
				slog.String("error", err.Error()))
			return picked, func() {}
		}
		if ok {
			id := picked.ID
			return picked, func() {
				if err := m.store.Del(context.Background(), key(id, "lease")); err != nil {
					m.logger.Warn("lease release failed",
						slog.String("identity", id),
						slog.String("error", err.Error()))
				}
			}
		}
		leased[picked.ID] = true
	}
	return nil, nil
}

// pick implements the lowest-usage selection, skipping burned identities and
// any in the exclude set.
func (m *Manager) pick(ctx context.Context, exclude map[string]bool) *Identity {
	type candidate struct {
		identity Identity
		count    int64
	}

	var healthy []candidate
	for _, id := range m.identities {
		if exclude[id.ID] {
			continue
		}
		burned, err := m.isBurned(ctx, id.ID)
		if err != nil {
			m.logger.Warn("identity store unreachable, stealth unavailable",
				slog.String("error", err.Error()))
			return nil
		}
		if burned {
			continue
		}
		count, err := m.requestCount(ctx, id.ID)
		if err != nil {
			m.logger.Warn("identity store unreachable, stealth unavailable",
				slog.String("error", err.Error()))
			return nil
		}
		healthy = append(healthy, candidate{identity: id, count: count})
	}

	if len(healthy) == 0 {
		if exclude == nil || len(exclude) == 0 {
			m.logger.Warn("all identities burned")
		}
		return nil
	}

	sort.Slice(healthy, func(i, j int) bool {
		return healthy[i].count < healthy[j].count
	})

	lowest := healthy[0].count
	tied := 0
	for _, c := range healthy {
		if c.count <= lowest+nearTieMargin {
			tied++
		}
	}

	picked := healthy[rand.Intn(tied)].identity
	return &picked
}

// MarkSuccess atomically increments the identity's request counter. When the
// post-increment count reaches a rotation threshold drawn from
// [minRequestsBeforeRotate, maxRequestsBeforeRotate), the identity's counter
// and cookie jar are reset, simulating a fresh session.
func (m *Manager) MarkSuccess(ctx context.Context, id *Identity) {
	countKey := key(id.ID, "requests")

	count, err := m.store.Incr(ctx, countKey)
	if err != nil {
		m.logger.Warn("request counter increment failed",
			slog.String("identity", id.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := m.store.Expire(ctx, countKey, counterTTL); err != nil {
		m.logger.Warn("request counter expire failed",
			slog.String("identity", id.ID),
			slog.String("error", err.Error()))
	}

	threshold := int64(minRequestsBeforeRotate + rand.Intn(maxRequestsBeforeRotate-minRequestsBeforeRotate))
	if count >= threshold {
		m.logger.Info("rotating identity",
			slog.String("identity", id.ID),
			slog.Int64("requests", count))
		m.reset(ctx, id.ID)
	}
}

// MarkBurned excludes the identity from selection for burnDuration. There is
// no unburn notification; health is rechecked lazily on the next selection.
func (m *Manager) MarkBurned(ctx context.Context, id *Identity) {
	burnUntil := time.Now().UTC().Add(burnDuration)

	if err := m.store.Set(ctx, key(id.ID, "burned"), burnUntil.Format(time.RFC3339), burnDuration); err != nil {
		m.logger.Warn("burn flag write failed",
			slog.String("identity", id.ID),
			slog.String("error", err.Error()))
		return
	}

	m.logger.Warn("identity burned",
		slog.String("identity", id.ID),
		slog.Time("until", burnUntil))
}

// SaveCookies persists the identity's cookie jar for session continuity
// across fetches that reuse the same identity.
func (m *Manager) SaveCookies(ctx context.Context, identityID, cookies string) error {
	if err := m.store.Set(ctx, key(identityID, "cookies"), cookies, cookieTTL); err != nil {
		return fmt.Errorf("save cookies for %s: %w", identityID, err)
	}
	return nil
}

// LoadCookies returns the saved cookie jar for an identity, or "" when none
// exists.
func (m *Manager) LoadCookies(ctx context.Context, identityID string) string {
	cookies, err := m.store.Get(ctx, key(identityID, "cookies"))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			m.logger.Warn("cookie load failed",
				slog.String("identity", identityID),
				slog.String("error", err.Error()))
		}
		return ""
	}
	return cookies
}

func (m *Manager) isBurned(ctx context.Context, identityID string) (bool, error) {
	value, err := m.store.Get(ctx, key(identityID, "burned"))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	burnUntil, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Unparseable burn flag: treat as healthy, the store TTL still
		// bounds the damage.
		return false, nil
	}
	return time.Now().UTC().Before(burnUntil), nil
}

func (m *Manager) requestCount(ctx context.Context, identityID string) (int64, error) {
	value, err := m.store.Get(ctx, key(identityID, "requests"))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, nil
	}
	return count, nil
}

func (m *Manager) reset(ctx context.Context, identityID string) {
	err := m.store.Del(ctx, key(identityID, "requests"), key(identityID, "cookies"))
	if err != nil {
		m.logger.Warn("identity reset failed",
			slog.String("identity", identityID),
			slog.String("error", err.Error()))
		return
	}
	m.logger.Info("identity reset", slog.String("identity", identityID))
}
