// internal/stealth/extractor_test.go
package stealth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pricehawk/pricehawk/internal/browser"
	"github.com/pricehawk/pricehawk/internal/identity"
)

// fakeSession serves canned content without a browser.
type fakeSession struct {
	mu         sync.Mutex
	content    string
	status     int
	navErr     error
	setCookies string
	cookies    string
	closed     bool
}

func (f *fakeSession) Navigate(ctx context.Context, url string) (int, error) {
	if f.navErr != nil {
		return 0, f.navErr
	}
	return f.status, nil
}

func (f *fakeSession) Content(ctx context.Context) (string, error) { return f.content, nil }

func (f *fakeSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	return nil
}

func (f *fakeSession) MouseMove(ctx context.Context, x, y float64) error { return nil }

func (f *fakeSession) ScrollBy(ctx context.Context, pixels int) error { return nil }

func (f *fakeSession) Click(ctx context.Context, selector string) error { return nil }

func (f *fakeSession) ElementVisible(ctx context.Context, selector string) (bool, error) {
	return false, nil
}

func (f *fakeSession) Viewport() (int, int) { return 1440, 900 }

func (f *fakeSession) Cookies(ctx context.Context) (string, error) {
	if f.cookies == "" {
		return "[]", nil
	}
	return f.cookies, nil
}

func (f *fakeSession) SetCookies(ctx context.Context, cookiesJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCookies = cookiesJSON
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// memoryCookies is a CookieStore for tests.
type memoryCookies struct {
	mu   sync.Mutex
	jars map[string]string
}

func newMemoryCookies() *memoryCookies {
	return &memoryCookies{jars: make(map[string]string)}
}

func (m *memoryCookies) LoadCookies(ctx context.Context, identityID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jars[identityID]
}

func (m *memoryCookies) SaveCookies(ctx context.Context, identityID, cookies string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jars[identityID] = cookies
	return nil
}

func testIdentity() *identity.Identity {
	id := identity.Catalog()[0]
	return &id
}

func newTestExtractor(session *fakeSession, cookies CookieStore) *Extractor {
	factory := func(ctx context.Context, config browser.Config, fp browser.Fingerprint) (browser.Session, error) {
		return session, nil
	}
	return NewExtractor(browser.DefaultConfig(), cookies, factory, nil)
}

func TestExtract_Success(t *testing.T) {
	if testing.Short() {
		t.Skip("behavior simulation uses real delays")
	}

	session := &fakeSession{
		status:  200,
		content: `<html><div id="corePrice_feature_div"><span class="a-offscreen">$42.00</span></div></html>`,
		cookies: `[{"name":"session-id","value":"xyz"}]`,
	}
	cookies := newMemoryCookies()
	extractor := newTestExtractor(session, cookies)

	result := extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if !result.Success {
		t.Fatalf("expected success, got failure %v", result.FailureType)
	}
	if result.Price != 42.00 {
		t.Errorf("expected price 42.00, got %v", result.Price)
	}
	if !session.closed {
		t.Error("session must be released after extraction")
	}
	if cookies.jars[testIdentity().ID] == "" {
		t.Error("expected cookies persisted on success")
	}
}

func TestExtract_CaptchaShortCircuits(t *testing.T) {
	if testing.Short() {
		t.Skip("behavior simulation uses real delays")
	}

	session := &fakeSession{
		status: 200,
		// The page even contains a parseable price; CAPTCHA must win.
		content: `<html>Robot Check <div class="price">$10.00</div></html>`,
	}
	cookies := newMemoryCookies()
	extractor := newTestExtractor(session, cookies)

	result := extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if result.Success {
		t.Fatal("expected failure on CAPTCHA page")
	}
	if result.FailureType != FailureCaptcha {
		t.Errorf("expected FailureCaptcha, got %v", result.FailureType)
	}
	if cookies.jars[testIdentity().ID] != "" {
		t.Error("cookies must not be saved for a blocked page")
	}
	if !session.closed {
		t.Error("session must be released on failure")
	}
}

func TestExtract_NavigationErrorIsNetworkFailure(t *testing.T) {
	session := &fakeSession{navErr: errors.New("net::ERR_TIMED_OUT")}
	extractor := newTestExtractor(session, newMemoryCookies())

	result := extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if result.Success || result.FailureType != FailureNetwork {
		t.Errorf("expected FailureNetwork, got %+v", result)
	}
	if !session.closed {
		t.Error("session must be released on navigation error")
	}
}

func TestExtract_SessionLaunchFailure(t *testing.T) {
	factory := func(ctx context.Context, config browser.Config, fp browser.Fingerprint) (browser.Session, error) {
		return nil, errors.New("chrome not found")
	}
	extractor := NewExtractor(browser.DefaultConfig(), newMemoryCookies(), factory, nil)

	result := extractor.Extract(context.Background(), "https://example.com", testIdentity())

	if result.Success || result.FailureType != FailureNetwork {
		t.Errorf("expected FailureNetwork on launch failure, got %+v", result)
	}
}

func TestExtract_NoPriceFound(t *testing.T) {
	if testing.Short() {
		t.Skip("behavior simulation uses real delays")
	}

	session := &fakeSession{status: 200, content: "<html>nothing to see</html>"}
	extractor := newTestExtractor(session, newMemoryCookies())

	result := extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if result.Success || result.FailureType != FailureNoPrice {
		t.Errorf("expected FailureNoPrice, got %+v", result)
	}
}

func TestExtract_RateLimitedStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("behavior simulation uses real delays")
	}

	session := &fakeSession{status: 503, content: "<html>service unavailable</html>"}
	extractor := newTestExtractor(session, newMemoryCookies())

	result := extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if result.Success || result.FailureType != FailureRateLimited {
		t.Errorf("expected FailureRateLimited, got %+v", result)
	}
}

func TestExtract_RestoresSavedCookies(t *testing.T) {
	if testing.Short() {
		t.Skip("behavior simulation uses real delays")
	}

	session := &fakeSession{status: 200, content: "<html></html>"}
	cookies := newMemoryCookies()
	jar := `[{"name":"sid","value":"abc"}]`
	cookies.SaveCookies(context.Background(), testIdentity().ID, jar)

	extractor := newTestExtractor(session, cookies)
	extractor.Extract(context.Background(), "https://www.amazon.com/dp/B000", testIdentity())

	if session.setCookies != jar {
		t.Errorf("expected saved jar restored into session, got %q", session.setCookies)
	}
}
