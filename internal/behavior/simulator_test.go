// internal/behavior/simulator_test.go
package behavior

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// scriptedSession records interactions for assertions.
type scriptedSession struct {
	mu             sync.Mutex
	mouseMoves     int
	scrollTotal    int
	clicked        []string
	visibleBanners map[string]bool
}

func (s *scriptedSession) Navigate(ctx context.Context, url string) (int, error) { return 200, nil }

func (s *scriptedSession) Content(ctx context.Context) (string, error) { return "", nil }

func (s *scriptedSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	return nil
}

func (s *scriptedSession) MouseMove(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mouseMoves++
	return nil
}

func (s *scriptedSession) ScrollBy(ctx context.Context, pixels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTotal += pixels
	return nil
}

func (s *scriptedSession) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicked = append(s.clicked, selector)
	return nil
}

func (s *scriptedSession) ElementVisible(ctx context.Context, selector string) (bool, error) {
	return s.visibleBanners[selector], nil
}

func (s *scriptedSession) Viewport() (int, int) { return 1280, 800 }

func (s *scriptedSession) Cookies(ctx context.Context) (string, error) { return "[]", nil }

func (s *scriptedSession) SetCookies(ctx context.Context, cookiesJSON string) error { return nil }

func (s *scriptedSession) Close() error { return nil }

func TestSimulator_RunDrivesFullSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("interaction sequence uses real delays")
	}

	session := &scriptedSession{}
	sim := NewSimulator(nil)

	if err := sim.Run(context.Background(), session); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if session.mouseMoves < 30 {
		t.Errorf("expected two pointer paths (>=30 samples), got %d moves", session.mouseMoves)
	}
	// Net downward distance covers the 300-600px target; occasional upward
	// corrections keep the gross total slightly above the net.
	if session.scrollTotal < 250 {
		t.Errorf("expected at least ~300px net scroll, got %d", session.scrollTotal)
	}
}

func TestSimulator_DismissesVisibleConsentBanner(t *testing.T) {
	if testing.Short() {
		t.Skip("interaction sequence uses real delays")
	}

	session := &scriptedSession{
		visibleBanners: map[string]bool{"#sp-cc-accept": true},
	}
	sim := NewSimulator(nil)

	if err := sim.Run(context.Background(), session); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	found := false
	for _, selector := range session.clicked {
		if strings.Contains(selector, "sp-cc-accept") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected consent banner click, clicked: %v", session.clicked)
	}
}

func TestSimulator_RunHonorsCancellation(t *testing.T) {
	session := &scriptedSession{}
	sim := NewSimulator(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sim.Run(ctx, session); err == nil {
		t.Error("expected context error from cancelled run")
	}
}

func TestSimulator_CancellationDuringBannerDismissal(t *testing.T) {
	if testing.Short() {
		t.Skip("interaction sequence uses real delays")
	}

	session := &cancelOnClickSession{
		scriptedSession: scriptedSession{
			visibleBanners: map[string]bool{"#sp-cc-accept": true},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel
	sim := NewSimulator(nil)

	// The click cancels the context, so the post-click settle must surface
	// the cancellation instead of the sequence running on.
	if err := sim.Run(ctx, session); err == nil {
		t.Error("expected context error after cancellation mid-dismissal")
	}
	if session.mouseMoves != 0 {
		t.Errorf("sequence continued after cancellation: %d pointer moves", session.mouseMoves)
	}
}

// cancelOnClickSession cancels its context the moment the banner is clicked.
type cancelOnClickSession struct {
	scriptedSession
	cancel context.CancelFunc
}

func (s *cancelOnClickSession) Click(ctx context.Context, selector string) error {
	s.cancel()
	return s.scriptedSession.Click(ctx, selector)
}
