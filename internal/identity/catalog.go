// internal/identity/catalog.go
package identity

// Identity represents a fixed browser fingerprint presented consistently for
// the lifetime of a session. Profile fields are immutable; usage counters and
// burn windows live in the shared store and are owned by the Manager.
type Identity struct {
	ID            string  `yaml:"id" json:"id"`
	UserAgent     string  `yaml:"user_agent" json:"user_agent"`
	ViewportW     int     `yaml:"viewport_width" json:"viewport_width"`
	ViewportH     int     `yaml:"viewport_height" json:"viewport_height"`
	Timezone      string  `yaml:"timezone" json:"timezone"`
	Locale        string  `yaml:"locale" json:"locale"`
	ColorScheme   string  `yaml:"color_scheme" json:"color_scheme"`
	DeviceScale   float64 `yaml:"device_scale" json:"device_scale"`
	WebGLVendor   string  `yaml:"webgl_vendor" json:"webgl_vendor"`
	WebGLRenderer string  `yaml:"webgl_renderer" json:"webgl_renderer"`
}

// Catalog returns the built-in identity pool. Profiles mirror real browser
// configurations so that every observable attribute stays consistent within
// one identity (a Safari user agent never reports an NVIDIA renderer).
func Catalog() []Identity {
	return []Identity{
		{
			ID:            "mac_chrome_1",
			UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			ViewportW:     1440,
			ViewportH:     900,
			Timezone:      "America/New_York",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   2,
			WebGLVendor:   "Google Inc. (Apple)",
			WebGLRenderer: "ANGLE (Apple, Apple M1 Pro, OpenGL 4.1)",
		},
		{
			ID:            "mac_chrome_2",
			UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ViewportW:     1680,
			ViewportH:     1050,
			Timezone:      "America/Los_Angeles",
			Locale:        "en-US",
			ColorScheme:   "dark",
			DeviceScale:   2,
			WebGLVendor:   "Google Inc. (Apple)",
			WebGLRenderer: "ANGLE (Apple, Apple M2, OpenGL 4.1)",
		},
		{
			ID:            "mac_safari_1",
			UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
			ViewportW:     1440,
			ViewportH:     900,
			Timezone:      "America/Chicago",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   2,
			WebGLVendor:   "Apple Inc.",
			WebGLRenderer: "Apple M1",
		},
		{
			ID:            "windows_chrome_1",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			ViewportW:     1920,
			ViewportH:     1080,
			Timezone:      "America/New_York",
			Locale:        "en-US",
			ColorScheme:   "dark",
			DeviceScale:   1,
			WebGLVendor:   "Google Inc. (NVIDIA)",
			WebGLRenderer: "ANGLE (NVIDIA, NVIDIA GeForce RTX 3070, OpenGL 4.5)",
		},
		{
			ID:            "windows_chrome_2",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ViewportW:     2560,
			ViewportH:     1440,
			Timezone:      "America/Denver",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   1,
			WebGLVendor:   "Google Inc. (AMD)",
			WebGLRenderer: "ANGLE (AMD, AMD Radeon RX 6800 XT, OpenGL 4.6)",
		},
		{
			ID:            "windows_edge_1",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
			ViewportW:     1920,
			ViewportH:     1080,
			Timezone:      "America/Chicago",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   1.25,
			WebGLVendor:   "Google Inc. (Intel)",
			WebGLRenderer: "ANGLE (Intel, Intel(R) UHD Graphics 630, OpenGL 4.6)",
		},
		{
			ID:            "windows_firefox_1",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
			ViewportW:     1920,
			ViewportH:     1080,
			Timezone:      "America/Los_Angeles",
			Locale:        "en-US",
			ColorScheme:   "dark",
			DeviceScale:   1,
			WebGLVendor:   "NVIDIA Corporation",
			WebGLRenderer: "NVIDIA GeForce GTX 1660/PCIe/SSE2",
		},
		{
			ID:            "linux_chrome_1",
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			ViewportW:     1920,
			ViewportH:     1080,
			Timezone:      "America/New_York",
			Locale:        "en-US",
			ColorScheme:   "dark",
			DeviceScale:   1,
			WebGLVendor:   "Google Inc. (NVIDIA Corporation)",
			WebGLRenderer: "ANGLE (NVIDIA Corporation, NVIDIA GeForce RTX 2080/PCIe/SSE2, OpenGL 4.5)",
		},
		{
			ID:            "linux_firefox_1",
			UserAgent:     "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
			ViewportW:     1920,
			ViewportH:     1080,
			Timezone:      "America/Chicago",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   1,
			WebGLVendor:   "AMD",
			WebGLRenderer: "AMD Radeon RX 580 Series (polaris10, LLVM 15.0.7, DRM 3.49, 6.2.0-39-generic)",
		},
		{
			ID:            "mac_chrome_3",
			UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			ViewportW:     1512,
			ViewportH:     982,
			Timezone:      "America/Phoenix",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   2,
			WebGLVendor:   "Google Inc. (Apple)",
			WebGLRenderer: "ANGLE (Apple, Apple M3 Max, OpenGL 4.1)",
		},
		{
			ID:            "windows_chrome_3",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			ViewportW:     1366,
			ViewportH:     768,
			Timezone:      "America/New_York",
			Locale:        "en-US",
			ColorScheme:   "light",
			DeviceScale:   1,
			WebGLVendor:   "Google Inc. (Intel)",
			WebGLRenderer: "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics, OpenGL 4.6)",
		},
		{
			ID:            "mac_safari_2",
			UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Safari/605.1.15",
			ViewportW:     1280,
			ViewportH:     800,
			Timezone:      "America/Los_Angeles",
			Locale:        "en-US",
			ColorScheme:   "dark",
			DeviceScale:   2,
			WebGLVendor:   "Apple Inc.",
			WebGLRenderer: "Apple M2 Pro",
		},
	}
}
