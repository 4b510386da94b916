// internal/behavior/simulator.go
package behavior

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pricehawk/pricehawk/internal/browser"
)

// consentSelectors are the known consent/cookie banner dismissal targets,
// checked in order. Includes the reject-tracking variant some layouts show
// instead of a plain accept button.
var consentSelectors = []string{
	"#sp-cc-accept",
	"[data-cel-widget='sp-cc-accept']",
	"input[data-action-type='DISMISS']",
	"#sp-cc-rejectall-link",
	"#onetrust-accept-btn-handler",
	"button[aria-label='Accept cookies']",
}

// Simulator drives a browser session through a human-like interaction
// sequence before content is read. Every step is an awaited action with its
// own randomized delay; individual step failures are logged and skipped
// rather than aborting the sequence.
type Simulator struct {
	logger *slog.Logger
}

// NewSimulator creates a Simulator.
func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		logger: logger.With(slog.String("component", "behavior")),
	}
}

// Run executes the interaction sequence: reading pause, consent banner
// dismissal, pointer drift to a neutral region, chunked scrolling toward the
// product area, pointer move to the likely price region, final pause.
func (s *Simulator) Run(ctx context.Context, session browser.Session) error {
	// Reading pause after page load.
	if err := sleep(ctx, HumanDelay(1000, 0.4)); err != nil {
		return err
	}

	if err := s.dismissConsentBanner(ctx, session); err != nil {
		return err
	}

	width, height := session.Viewport()

	// Drift toward a neutral region of the page.
	neutral := Point{
		X: float64(randInt(int(float64(width)*0.3), int(float64(width)*0.7))),
		Y: float64(randInt(int(float64(height)*0.2), int(float64(height)*0.4))),
	}
	if err := s.mouseMove(ctx, session, Point{X: float64(width) / 2, Y: float64(height) / 2}, neutral); err != nil {
		return err
	}

	if err := s.scroll(ctx, session, randInt(300, 600)); err != nil {
		return err
	}

	// Price blocks sit in a fairly stable region on product layouts.
	price := Point{
		X: float64(randInt(300, 500)),
		Y: float64(randInt(300, 500)),
	}
	if err := s.mouseMove(ctx, session, neutral, price); err != nil {
		return err
	}

	return sleep(ctx, HumanDelay(500, 0.3))
}

// dismissConsentBanner clicks the first visible consent selector. Best
// effort: a page without a banner, or a failed click, is not an error; only
// context cancellation is.
func (s *Simulator) dismissConsentBanner(ctx context.Context, session browser.Session) error {
	for _, selector := range consentSelectors {
		visible, err := session.ElementVisible(ctx, selector)
		if err != nil || !visible {
			continue
		}

		if err := sleep(ctx, HumanDelay(500, 0.3)); err != nil {
			return err
		}
		if err := session.Click(ctx, selector); err != nil {
			s.logger.Debug("consent banner click failed",
				slog.String("selector", selector),
				slog.String("error", err.Error()))
			continue
		}
		// Settle after the click before the next step.
		return sleep(ctx, HumanDelay(300, 0.2))
	}
	return nil
}

// mouseMove walks the pointer along a Bézier path with tiny pauses between
// samples, the way a hand moves rather than a teleporting cursor.
func (s *Simulator) mouseMove(ctx context.Context, session browser.Session, from, to Point) error {
	points := BezierPoints(from, to, randInt(15, 25), 10)
	for _, p := range points {
		if err := session.MouseMove(ctx, p.X, p.Y); err != nil {
			s.logger.Debug("mouse move failed", slog.String("error", err.Error()))
			return nil
		}
		if err := sleep(ctx, time.Duration(uniform(5, 25))*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// scroll covers targetPx downward in variable chunks with pauses, with an
// occasional small upward correction the way a reader overshoots.
func (s *Simulator) scroll(ctx context.Context, session browser.Session, targetPx int) error {
	scrolled := 0
	for scrolled < targetPx {
		chunk := randInt(50, 150)
		if err := session.ScrollBy(ctx, chunk); err != nil {
			s.logger.Debug("scroll failed", slog.String("error", err.Error()))
			return nil
		}
		scrolled += chunk

		if err := sleep(ctx, HumanDelay(300, 0.5)); err != nil {
			return err
		}

		if rand.Float64() < 0.05 {
			if err := session.ScrollBy(ctx, -randInt(20, 50)); err != nil {
				return nil
			}
			if err := sleep(ctx, HumanDelay(200, 0.3)); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
