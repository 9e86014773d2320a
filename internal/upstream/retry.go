package upstream

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
)

// Strategy is the dispatcher's verdict on a failed upstream attempt.
type Strategy struct {
	Retryable bool
	// Passthrough short-circuits the retry chain and hands the upstream
	// status and body straight back to the client.
	Passthrough bool
	Delay       time.Duration
}

// IsQuotaExhausted reports whether the error body carries the upstream's
// quota marker. Those responses are returned as-is to protect the pool.
func IsQuotaExhausted(body []byte) bool {
	return bytes.Contains(body, []byte("QUOTA_EXHAUSTED"))
}

// DecideRetry classifies a non-2xx upstream response. attempt is zero-based.
func DecideRetry(status int, retryAfter string, body []byte, attempt int) Strategy {
	switch status {
	case http.StatusTooManyRequests:
		if IsQuotaExhausted(body) {
			return Strategy{Passthrough: true}
		}
		if hint, ok := RetryDelayHint(retryAfter, body); ok {
			delay := hint + constants.RetryHintBuffer
			if delay > constants.RetryHintCeiling {
				delay = constants.RetryHintCeiling
			}
			return Strategy{Retryable: true, Delay: delay}
		}
		return Strategy{Retryable: true, Delay: constants.RateLimitLinearBase * time.Duration(attempt+1)}

	case http.StatusServiceUnavailable, 529:
		delay := constants.OverloadBackoffBase << uint(attempt)
		if delay > constants.OverloadBackoffMax {
			delay = constants.OverloadBackoffMax
		}
		return Strategy{Retryable: true, Delay: delay}

	case http.StatusInternalServerError:
		return Strategy{Retryable: true, Delay: constants.ServerErrorLinearBase * time.Duration(attempt+1)}

	case http.StatusUnauthorized, http.StatusForbidden:
		return Strategy{Retryable: true, Delay: constants.AuthFailureDelay}
	}
	return Strategy{}
}

// RetryDelayHint extracts an upstream-provided wait. The JSON hint wins
// over the Retry-After header.
func RetryDelayHint(retryAfter string, body []byte) (time.Duration, bool) {
	for _, path := range []string{"error.retryInfo.retryDelay", "error.quotaResetDelay"} {
		if v := gjson.GetBytes(body, path); v.Exists() {
			if d, ok := ParseRetryDelay(v.String()); ok {
				return d, true
			}
		}
	}
	// details-style RetryInfo, as emitted by googleapis error payloads
	for _, detail := range gjson.GetBytes(body, "error.details").Array() {
		if strings.HasSuffix(detail.Get("@type").String(), "RetryInfo") {
			if d, ok := ParseRetryDelay(detail.Get("retryDelay").String()); ok {
				return d, true
			}
		}
	}
	if retryAfter != "" {
		if d, ok := ParseRetryAfter(retryAfter); ok {
			return d, true
		}
	}
	return 0, false
}

// ParseRetryDelay understands the upstream's "<int>ms" and "<float>s"
// delay formats, plus full Go-style durations like "1h16m0.667s".
func ParseRetryDelay(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if ms, ok := strings.CutSuffix(raw, "ms"); ok {
		if n, err := strconv.ParseInt(ms, 10, 64); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond, true
		}
	}
	if s, ok := strings.CutSuffix(raw, "s"); ok && !strings.ContainsAny(s, "hm") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			return time.Duration(f * float64(time.Second)), true
		}
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d, true
	}
	return 0, false
}

// ParseRetryAfter handles both delta-seconds and HTTP-date forms.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, value); err == nil {
			if d := time.Until(t); d > 0 {
				return d, true
			}
			return 0, true
		}
	}
	return 0, false
}
