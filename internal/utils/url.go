// internal/utils/url.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Domain extracts the normalized host from a URL: lowercased, without the
// www. prefix. Returns "unknown" for unparseable input so telemetry keys
// stay well-formed.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	domain := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(domain, "www.")
}

// URLHash returns a deterministic fixed-length key for a URL, safe for use
// in store keys regardless of the URL's characters.
func URLHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// TruncateURL bounds a URL for storage in fixed-width telemetry columns.
func TruncateURL(rawURL string, max int) string {
	if len(rawURL) <= max {
		return rawURL
	}
	return rawURL[:max]
}
