package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/upstream"
)

// ErrNoneAvailable means every account is disabled, rate-limited, or over
// its quota ceiling for the requested type.
var ErrNoneAvailable = errors.New("no account available")

// Pick is the result of a pool selection.
type Pick struct {
	AccessToken string
	ProjectID   string
	Email       string
}

// Manager owns the account pool: round-robin cursors per request type,
// the sticky session table, and token refresh. The manager lock guards
// the slice, cursors, and sticky table only; per-account state lives
// behind each account's own lock and refresh happens outside both.
type Manager struct {
	mu       sync.Mutex
	accounts []*Account
	cursors  map[string]int
	sticky   *stickyTable

	refresher    *Refresher
	quotaCeiling func(requestType string) int
	now          func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithQuotaCeiling installs the per-type usage ceiling lookup.
func WithQuotaCeiling(fn func(requestType string) int) Option {
	return func(m *Manager) { m.quotaCeiling = fn }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRefresher overrides the token refresher, used by tests.
func WithRefresher(r *Refresher) Option {
	return func(m *Manager) { m.refresher = r }
}

// NewManager builds a pool over the given accounts.
func NewManager(accounts []*Account, refresher *Refresher, opts ...Option) *Manager {
	for _, acct := range accounts {
		acct.init()
	}
	m := &Manager{
		accounts:     accounts,
		cursors:      make(map[string]int),
		sticky:       newStickyTable(constants.StickySessionLimit),
		refresher:    refresher,
		quotaCeiling: func(string) int { return 0 },
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	monitoring.ActiveAccounts.Set(float64(len(accounts)))
	return m
}

// Len returns the pool size.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

// Pick selects an account for requestType. A sticky binding wins unless
// forceRotate is set; otherwise the per-type cursor scans the pool for the
// first available account. The chosen account's token is refreshed when
// close to expiry.
func (m *Manager) Pick(ctx context.Context, requestType string, forceRotate bool, sessionID, originalModel string) (Pick, error) {
	now := m.now()
	ceiling := m.quotaCeiling(requestType)

	acct := m.selectAccount(requestType, forceRotate, sessionID, ceiling, now)
	if acct == nil {
		return Pick{}, ErrNoneAvailable
	}

	// Refresh outside the pool lock; concurrent picks of the same account
	// share a single exchange.
	if acct.NeedsRefresh(constants.TokenRefreshAhead, now) {
		if err := m.refresher.Refresh(ctx, acct); err != nil {
			log.WithError(err).WithField("email", acct.Email).Warn("token refresh failed")
			return Pick{}, err
		}
	}

	if sessionID != "" {
		m.mu.Lock()
		m.sticky.put(sessionID, acct.Email)
		m.mu.Unlock()
	}

	token, project, email := acct.Snapshot()
	return Pick{AccessToken: token, ProjectID: project, Email: email}, nil
}

func (m *Manager) selectAccount(requestType string, forceRotate bool, sessionID string, ceiling int, now time.Time) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.accounts) == 0 {
		return nil
	}

	if sessionID != "" && !forceRotate {
		if email, ok := m.sticky.get(sessionID); ok {
			if acct := m.findLocked(email); acct != nil && acct.Available(requestType, ceiling, now) {
				monitoring.StickySessionHits.Inc()
				return acct
			}
		}
	}

	start := m.cursors[requestType] % len(m.accounts)
	for i := 0; i < len(m.accounts); i++ {
		idx := (start + i) % len(m.accounts)
		acct := m.accounts[idx]
		if acct.Available(requestType, ceiling, now) {
			m.cursors[requestType] = (idx + 1) % len(m.accounts)
			monitoring.AccountRotationsTotal.WithLabelValues(requestType).Inc()
			return acct
		}
	}
	return nil
}

// findLocked returns the account with the given email; caller holds m.mu.
func (m *Manager) findLocked(email string) *Account {
	for _, acct := range m.accounts {
		if acct.Email == email {
			return acct
		}
	}
	return nil
}

func (m *Manager) find(email string) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(email)
}

// MarkRateLimited parks the account after a failed attempt. The wait is
// parsed from the error body, then the Retry-After header, then falls back
// to per-status defaults scaled by the account's failure streak. A body
// carrying QUOTA_EXHAUSTED triggers the long per-model-group cooldown
// instead.
func (m *Manager) MarkRateLimited(email string, status int, retryAfter string, errorBody []byte, requestType, mappedModel string) {
	acct := m.find(email)
	if acct == nil {
		return
	}
	now := m.now()

	if upstream.IsQuotaExhausted(errorBody) {
		acct.markQuotaExhausted(requestType, mappedModel, constants.QuotaExhaustedCooldown, now)
		monitoring.AccountRateLimitedTotal.WithLabelValues("quota_exhausted").Inc()
		log.WithFields(log.Fields{"email": email, "request_type": requestType, "model": mappedModel}).
			Warn("account quota exhausted, cooling down")
		return
	}

	delay, ok := upstream.RetryDelayHint(retryAfter, errorBody)
	if !ok {
		delay = defaultRateLimitDelay(status, acct.FailStreak())
	}
	acct.markRateLimited(requestType, delay, now)
	monitoring.AccountRateLimitedTotal.WithLabelValues(statusLabel(status)).Inc()
	log.WithFields(log.Fields{"email": email, "status": status, "delay": delay.String()}).
		Debug("account rate limited")
}

// MarkSuccess resets the failure streak and bumps the per-type counter.
func (m *Manager) MarkSuccess(email, requestType string) {
	if acct := m.find(email); acct != nil {
		acct.markSuccess(requestType)
	}
}

// Replace swaps the pool contents on reload. Runtime state of accounts
// that survive (matched by email) is preserved; sticky bindings to removed
// accounts are dropped.
func (m *Manager) Replace(accounts []*Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]*Account, len(m.accounts))
	for _, acct := range m.accounts {
		existing[acct.Email] = acct
	}

	next := make([]*Account, 0, len(accounts))
	kept := make(map[string]bool, len(accounts))
	for _, acct := range accounts {
		if prev, ok := existing[acct.Email]; ok {
			next = append(next, prev)
		} else {
			acct.init()
			next = append(next, acct)
		}
		kept[acct.Email] = true
	}
	for email := range existing {
		if !kept[email] {
			m.sticky.dropAccount(email)
		}
	}
	m.accounts = next
	m.cursors = make(map[string]int)
	monitoring.ActiveAccounts.Set(float64(len(next)))
	log.WithField("accounts", len(next)).Info("account pool reloaded")
}

// Emails lists pool members for status endpoints.
func (m *Manager) Emails() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.accounts))
	for _, acct := range m.accounts {
		out = append(out, acct.Email)
	}
	return out
}

func defaultRateLimitDelay(status, streak int) time.Duration {
	if streak < 1 {
		streak = 1
	}
	switch status {
	case 429:
		return constants.RateLimitLinearBase * time.Duration(streak)
	case 500:
		return constants.ServerErrorLinearBase * time.Duration(streak)
	case 503, 529:
		d := constants.OverloadBackoffBase << uint(streak-1)
		if d > constants.OverloadBackoffMax {
			d = constants.OverloadBackoffMax
		}
		return d
	case 401, 403:
		return constants.AuthFailureDelay
	default:
		return constants.RateLimitLinearBase
	}
}

func statusLabel(status int) string {
	switch status {
	case 429:
		return "429"
	case 500:
		return "500"
	case 503:
		return "503"
	case 529:
		return "529"
	case 401, 403:
		return "auth"
	default:
		return "other"
	}
}
