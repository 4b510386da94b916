// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Session is the narrow capability surface the extraction pipeline needs from
// a driven browser. Keeping it small lets the behavior simulator and the
// stealth extractor stay independent of the concrete automation library, and
// lets tests substitute a scripted fake.
type Session interface {
	// Navigate loads a URL and returns the HTTP status of the main document.
	Navigate(ctx context.Context, url string) (int, error)

	// Content returns the current page HTML.
	Content(ctx context.Context) (string, error)

	// Evaluate runs JavaScript and unmarshals the result into out. A nil out
	// discards the result.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// MouseMove dispatches a pointer move to viewport coordinates.
	MouseMove(ctx context.Context, x, y float64) error

	// ScrollBy scrolls the page vertically by the given number of pixels.
	// Negative values scroll up.
	ScrollBy(ctx context.Context, pixels int) error

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// ElementVisible reports whether an element matching the selector is
	// present and visible.
	ElementVisible(ctx context.Context, selector string) (bool, error)

	// Viewport returns the session's viewport dimensions.
	Viewport() (width, height int)

	// Cookies returns the session's cookies as a JSON array.
	Cookies(ctx context.Context) (string, error)

	// SetCookies installs cookies from a JSON array produced by Cookies.
	SetCookies(ctx context.Context, cookiesJSON string) error

	// Close releases the browser session and all associated resources.
	Close() error
}

// Config defines browser session configuration.
type Config struct {
	Headless      bool          `yaml:"headless" json:"headless"`
	NavTimeout    time.Duration `yaml:"nav_timeout" json:"nav_timeout"`
	DisableImages bool          `yaml:"disable_images" json:"disable_images"`
	ChromePath    string        `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
}

// DefaultConfig returns production defaults for browser sessions.
func DefaultConfig() Config {
	return Config{
		Headless:      true,
		NavTimeout:    30 * time.Second,
		DisableImages: false,
	}
}
