// internal/browser/chromedp.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Fingerprint bundles the browser-observable attributes a session presents.
// Every field is applied before navigation so the page never sees a mix of
// real and overridden values.
type Fingerprint struct {
	UserAgent     string
	ViewportW     int
	ViewportH     int
	Timezone      string
	Locale        string
	ColorScheme   string
	DeviceScale   float64
	WebGLVendor   string
	WebGLRenderer string
}

// ChromeSession implements Session using chromedp. Each session owns an
// isolated browser process bound to one fingerprint; sessions are never
// shared between concurrent extractions.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      Config
	fingerprint Fingerprint
	navTimeout  time.Duration
}

// NewChromeSession launches a browser configured with the given fingerprint
// and applies the automation-detection counter-patches.
func NewChromeSession(parent context.Context, config Config, fp Fingerprint) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", fp.Locale),
		chromedp.WindowSize(fp.ViewportW, fp.ViewportH),
	)
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if config.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(config.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	navTimeout := config.NavTimeout
	if navTimeout == 0 {
		navTimeout = 30 * time.Second
	}

	session := &ChromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		fingerprint: fp,
		navTimeout:  navTimeout,
	}

	if err := session.applyFingerprint(); err != nil {
		session.Close()
		return nil, fmt.Errorf("apply fingerprint: %w", err)
	}

	return session, nil
}

// applyFingerprint installs every identity override and the stealth patches
// before the first navigation.
func (s *ChromeSession) applyFingerprint() error {
	fp := s.fingerprint

	return chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}

		headers := network.Headers{
			"Accept-Language":           fp.Locale + "," + primaryLanguage(fp.Locale) + ";q=0.9",
			"Upgrade-Insecure-Requests": "1",
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return err
		}

		ua := emulation.SetUserAgentOverride(fp.UserAgent).
			WithAcceptLanguage(fp.Locale).
			WithPlatform(platformForUserAgent(fp.UserAgent))
		if err := ua.Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetDeviceMetricsOverride(
			int64(fp.ViewportW), int64(fp.ViewportH), fp.DeviceScale, false,
		).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetTimezoneOverride(fp.Timezone).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetLocaleOverride().WithLocale(fp.Locale).Do(ctx); err != nil {
			return err
		}

		if fp.ColorScheme != "" {
			media := emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
				{Name: "prefers-color-scheme", Value: fp.ColorScheme},
			})
			if err := media.Do(ctx); err != nil {
				return err
			}
		}

		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}

		for _, script := range []string{stealthScript, webglSpoofScript(fp.WebGLVendor, fp.WebGLRenderer)} {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Navigate loads the URL under the configured timeout and returns the HTTP
// status of the main document.
func (s *ChromeSession) Navigate(ctx context.Context, url string) (int, error) {
	navCtx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		return 0, fmt.Errorf("navigation failed: %w", err)
	}
	if resp == nil {
		return 0, nil
	}
	return int(resp.Status), nil
}

// Content returns the current page HTML.
func (s *ChromeSession) Content(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// Evaluate runs JavaScript in the page.
func (s *ChromeSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// MouseMove dispatches a raw pointer move event.
func (s *ChromeSession) MouseMove(ctx context.Context, x, y float64) error {
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("mouse move failed: %w", err)
	}
	return nil
}

// ScrollBy scrolls the page vertically.
func (s *ChromeSession) ScrollBy(ctx context.Context, pixels int) error {
	return s.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d);", pixels), nil)
}

// Click clicks the first visible element matching the selector.
func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	clickCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// ElementVisible reports whether an element matching the selector is present
// and visible in the current page.
func (s *ChromeSession) ElementVisible(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
	})()`, selector)

	var visible bool
	if err := s.Evaluate(ctx, script, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// Viewport returns the fingerprint's viewport dimensions.
func (s *ChromeSession) Viewport() (int, int) {
	return s.fingerprint.ViewportW, s.fingerprint.ViewportH
}

// cookieRecord is the serialized form of one cookie, stable across sessions.
type cookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
}

// Cookies returns the session's cookies as a JSON array.
func (s *ChromeSession) Cookies(ctx context.Context) (string, error) {
	var records []cookieRecord
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			records = append(records, cookieRecord{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serialize cookies: %w", err)
	}
	return string(data), nil
}

// SetCookies installs previously saved cookies into the session.
func (s *ChromeSession) SetCookies(ctx context.Context, cookiesJSON string) error {
	if cookiesJSON == "" {
		return nil
	}

	var records []cookieRecord
	if err := json.Unmarshal([]byte(cookiesJSON), &records); err != nil {
		return fmt.Errorf("parse cookies: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(records))
	for _, r := range records {
		param := &network.CookieParam{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
		}
		if r.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(r.Expires), 0))
			param.Expires = &expires
		}
		params = append(params, param)
	}

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("install cookies: %w", err)
	}
	return nil
}

// Close releases the browser session. Safe to call more than once.
func (s *ChromeSession) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

func primaryLanguage(locale string) string {
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return locale
}

func platformForUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "macintosh"):
		return "MacIntel"
	case strings.Contains(ua, "windows"):
		return "Win32"
	default:
		return "Linux x86_64"
	}
}
