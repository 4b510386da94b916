// internal/stealth/classify.go
package stealth

import "strings"

// FailureType classifies why an extraction attempt produced no price.
type FailureType string

const (
	// FailureCaptcha means the page served a CAPTCHA or robot check. The
	// identity that triggered it should be burned by the caller.
	FailureCaptcha FailureType = "captcha"

	// FailureRateLimited means the server throttled the request (429/503).
	FailureRateLimited FailureType = "rate_limited"

	// FailureNoPrice means a normal-looking page held no extractable price.
	FailureNoPrice FailureType = "no_price"

	// FailureNetwork means navigation itself failed or timed out; no content
	// or status was available to classify.
	FailureNetwork FailureType = "network"
)

// Classify maps page content and HTTP status to a failure type, in strict
// precedence order: bot-detection markers, then throttling status codes,
// then the no-price catch-all. FailureNetwork is assigned by callers when
// navigation throws, since no content exists in that case.
func Classify(content string, statusCode int) FailureType {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "robot check") {
		return FailureCaptcha
	}
	if statusCode == 429 || statusCode == 503 {
		return FailureRateLimited
	}
	return FailureNoPrice
}
