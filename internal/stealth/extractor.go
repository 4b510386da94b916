// internal/stealth/extractor.go
package stealth

import (
	"context"
	"log/slog"

	"github.com/pricehawk/pricehawk/internal/behavior"
	"github.com/pricehawk/pricehawk/internal/browser"
	"github.com/pricehawk/pricehawk/internal/extract"
	"github.com/pricehawk/pricehawk/internal/identity"
	"github.com/pricehawk/pricehawk/internal/utils"
)

// Result is the outcome of one extraction attempt. Failures are data, not
// errors: the extractor never raises, so batch callers stay resilient to
// per-URL outcomes.
type Result struct {
	Success     bool
	Price       float64
	FailureType FailureType
	Content     string
}

// CookieStore persists cookie jars between sessions that reuse an identity.
// Implemented by identity.Manager.
type CookieStore interface {
	LoadCookies(ctx context.Context, identityID string) string
	SaveCookies(ctx context.Context, identityID, cookies string) error
}

// SessionFactory opens a driven browser session for a fingerprint. Swapped
// for a fake in tests so no browser is launched.
type SessionFactory func(ctx context.Context, config browser.Config, fp browser.Fingerprint) (browser.Session, error)

// Extractor orchestrates one stealth fetch: session setup from an identity's
// fingerprint, saved-cookie restore, navigation, behavior simulation, content
// classification, and price extraction. It requests identities and reports
// outcomes but never mutates identity state itself; burn decisions belong to
// the caller.
type Extractor struct {
	config    browser.Config
	sessions  SessionFactory
	simulator *behavior.Simulator
	cookies   CookieStore
	logger    *slog.Logger
}

// NewExtractor creates an Extractor. A nil factory launches real Chrome
// sessions.
func NewExtractor(config browser.Config, cookies CookieStore, sessions SessionFactory, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = func(ctx context.Context, config browser.Config, fp browser.Fingerprint) (browser.Session, error) {
			return browser.NewChromeSession(ctx, config, fp)
		}
	}
	return &Extractor{
		config:    config,
		sessions:  sessions,
		simulator: behavior.NewSimulator(logger),
		cookies:   cookies,
		logger:    logger.With(slog.String("component", "stealth")),
	}
}

// Extract fetches a price from url presenting the given identity. The
// session is always released, whatever the outcome.
func (e *Extractor) Extract(ctx context.Context, url string, id *identity.Identity) Result {
	session, err := e.sessions(ctx, e.config, fingerprintFor(id))
	if err != nil {
		e.logger.Warn("session launch failed",
			slog.String("identity", id.ID),
			slog.String("error", err.Error()))
		return Result{FailureType: FailureNetwork}
	}
	defer session.Close()

	if e.cookies != nil {
		if saved := e.cookies.LoadCookies(ctx, id.ID); saved != "" {
			if err := session.SetCookies(ctx, saved); err != nil {
				e.logger.Debug("cookie restore failed",
					slog.String("identity", id.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	status, err := session.Navigate(ctx, url)
	if err != nil {
		e.logger.Warn("navigation failed",
			slog.String("url", utils.TruncateURL(url, 120)),
			slog.String("error", err.Error()))
		return Result{FailureType: FailureNetwork}
	}

	if err := e.simulator.Run(ctx, session); err != nil {
		return Result{FailureType: FailureNetwork}
	}

	content, err := session.Content(ctx)
	if err != nil {
		return Result{FailureType: FailureNetwork}
	}

	classified := Classify(content, status)
	if classified == FailureCaptcha {
		e.logger.Warn("bot detection triggered",
			slog.String("url", utils.TruncateURL(url, 120)),
			slog.String("identity", id.ID))
		return Result{FailureType: FailureCaptcha, Content: content}
	}

	price, ok := extract.PriceFromHTML(utils.Domain(url), content)
	if !ok {
		return Result{FailureType: classified, Content: content}
	}

	if e.cookies != nil {
		if cookies, err := session.Cookies(ctx); err == nil {
			if err := e.cookies.SaveCookies(ctx, id.ID, cookies); err != nil {
				e.logger.Debug("cookie save failed",
					slog.String("identity", id.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	e.logger.Info("price extracted",
		slog.String("url", utils.TruncateURL(url, 120)),
		slog.String("identity", id.ID),
		slog.Float64("price", price))
	return Result{Success: true, Price: price, Content: content}
}

func fingerprintFor(id *identity.Identity) browser.Fingerprint {
	return browser.Fingerprint{
		UserAgent:     id.UserAgent,
		ViewportW:     id.ViewportW,
		ViewportH:     id.ViewportH,
		Timezone:      id.Timezone,
		Locale:        id.Locale,
		ColorScheme:   id.ColorScheme,
		DeviceScale:   id.DeviceScale,
		WebGLVendor:   id.WebGLVendor,
		WebGLRenderer: id.WebGLRenderer,
	}
}
