// internal/telemetry/attempt.go

// Package telemetry records extraction outcomes and watches per-domain
// health. Everything here is observation only: a broken attempt log or a
// slow notifier must never block or fail an extraction.
package telemetry

import "time"

// MethodLegacy marks attempts served by the plain-HTTP fallback path.
// Stealth attempts carry the identity ID instead.
const MethodLegacy = "legacy"

// ExtractionAttempt is one recorded fetch outcome.
type ExtractionAttempt struct {
	Domain       string
	URL          string // truncated before storage
	Success      bool
	Method       string // identity ID or MethodLegacy
	FailureType  string // empty on success
	ResponseTime time.Duration
	Timestamp    time.Time
}

// DomainHealth summarizes a domain's rolling success rate.
type DomainHealth struct {
	Domain      string  `json:"domain"`
	Successes   int     `json:"successes"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
	Alerting    bool    `json:"alerting"`
}
