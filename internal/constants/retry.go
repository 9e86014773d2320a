package constants

import "time"

// Account rotation / retry policy.
const (
	// MaxRetryAttempts caps the dispatcher retry chain; the effective limit
	// is min(MaxRetryAttempts, pool size), with a floor of two attempts.
	MaxRetryAttempts = 3

	// RetryHintBuffer is added on top of an upstream-provided retry delay.
	RetryHintBuffer = 200 * time.Millisecond
	// RetryHintCeiling caps a hinted wait so a single request never parks
	// on one account for long; longer hints rotate instead.
	RetryHintCeiling = 10 * time.Second

	// RateLimitLinearBase is the per-attempt wait for 429 without a hint.
	RateLimitLinearBase = 1 * time.Second
	// ServerErrorLinearBase is the per-attempt wait for plain 500s.
	ServerErrorLinearBase = 500 * time.Millisecond
	// OverloadBackoffBase / OverloadBackoffMax shape the exponential wait
	// for 503 and 529 responses.
	OverloadBackoffBase = 1 * time.Second
	OverloadBackoffMax  = 8 * time.Second
	// AuthFailureDelay is the brief pause after 401/403 before rotating.
	AuthFailureDelay = 100 * time.Millisecond

	// QuotaExhaustedCooldown parks an account for a model group after the
	// upstream reports QUOTA_EXHAUSTED.
	QuotaExhaustedCooldown = 30 * time.Minute
)

// Token refresh.
const (
	// TokenRefreshAhead refreshes access tokens this long before expiry.
	TokenRefreshAhead = 60 * time.Second
)
