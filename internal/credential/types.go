package credential

import (
	"strings"
	"sync"
	"time"
)

// Account is one Google account in the pool. Static identity fields are
// loaded from disk; runtime state is guarded by the account's own lock so
// pick can scan the pool without a global hold.
type Account struct {
	ID           string `json:"-"`
	Email        string `json:"email"`
	ProjectID    string `json:"project_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
	ExpiresAt    time.Time `json:"-"`
	Disabled     bool      `json:"disabled,omitempty"`

	// ExpiryTimestamp mirrors the on-disk "expiry_date" field (unix ms).
	ExpiryTimestamp int64 `json:"expiry_date,omitempty"`

	mu               sync.Mutex
	rateLimitedUntil map[string]time.Time // request type → window end
	quotaExhausted   map[string]time.Time // request type or type|model group → cooldown end
	usage            map[string]int64     // per-type success counters
	consecutiveFails int
}

func (a *Account) init() {
	if a.rateLimitedUntil == nil {
		a.rateLimitedUntil = make(map[string]time.Time)
	}
	if a.quotaExhausted == nil {
		a.quotaExhausted = make(map[string]time.Time)
	}
	if a.usage == nil {
		a.usage = make(map[string]int64)
	}
	if a.ExpiresAt.IsZero() && a.ExpiryTimestamp > 0 {
		a.ExpiresAt = time.UnixMilli(a.ExpiryTimestamp)
	}
}

// Available reports whether the account can serve requestType right now.
// quotaCeiling of zero means the type is untracked.
func (a *Account) Available(requestType string, quotaCeiling int, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Disabled {
		return false
	}
	if until, ok := a.rateLimitedUntil[requestType]; ok && now.Before(until) {
		return false
	}
	for key, until := range a.quotaExhausted {
		if key == requestType || strings.HasPrefix(key, requestType+"|") {
			if now.Before(until) {
				return false
			}
		}
	}
	if quotaCeiling > 0 && a.usage[requestType] >= int64(quotaCeiling) {
		return false
	}
	return true
}

// markRateLimited parks the account for requestType until now+delay.
func (a *Account) markRateLimited(requestType string, delay time.Duration, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rateLimitedUntil[requestType] = now.Add(delay)
	a.consecutiveFails++
}

// markQuotaExhausted parks the account for the type (and model group) for
// the long cooldown.
func (a *Account) markQuotaExhausted(requestType, mappedModel string, cooldown time.Duration, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	until := now.Add(cooldown)
	a.quotaExhausted[requestType] = until
	if mappedModel != "" {
		a.quotaExhausted[requestType+"|"+modelGroup(mappedModel)] = until
	}
	a.consecutiveFails++
}

func (a *Account) markSuccess(requestType string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveFails = 0
	if requestType != "" {
		a.usage[requestType]++
	}
}

// FailStreak returns the consecutive-failure count, used to scale default
// back-off windows.
func (a *Account) FailStreak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.consecutiveFails
}

// NeedsRefresh reports whether the access token is missing or within the
// refresh-ahead window of expiry.
func (a *Account) NeedsRefresh(ahead time.Duration, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.AccessToken == "" {
		return true
	}
	if a.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(ahead).After(a.ExpiresAt)
}

// Snapshot returns the fields the dispatcher needs, taken under the lock.
func (a *Account) Snapshot() (accessToken, projectID, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.AccessToken, a.ProjectID, a.Email
}

func (a *Account) setToken(accessToken string, expiresAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AccessToken = accessToken
	a.ExpiresAt = expiresAt
}

// modelGroup collapses preview/variant suffixes so quota marks cover the
// whole family, e.g. "gemini-3-pro-preview" and "gemini-3-pro-image"
// both map to "gemini-3-pro".
func modelGroup(model string) string {
	for _, suffix := range []string{"-preview", "-image", "-exp"} {
		if strings.HasSuffix(model, suffix) {
			return strings.TrimSuffix(model, suffix)
		}
	}
	return model
}
