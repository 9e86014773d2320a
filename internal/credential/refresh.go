package credential

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"antigravity2api-go/internal/monitoring"
)

const (
	// Google OAuth token endpoint and the antigravity desktop client.
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	defaultClientSecret = "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"
)

// Refresher exchanges refresh tokens for access tokens, coalescing
// concurrent refreshes of the same account.
type Refresher struct {
	httpClient *http.Client
	tokenURL   string
	inflight   *InflightCoordinator
	persist    func(*Account) error
	now        func() time.Time
}

// NewRefresher builds a refresher. persist, when non-nil, is called after
// every successful refresh to write the new token back to disk.
func NewRefresher(persist func(*Account) error) *Refresher {
	return &Refresher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   defaultTokenURL,
		inflight:   NewInflightCoordinator(),
		persist:    persist,
		now:        time.Now,
	}
}

// Refresh ensures the account has a live access token. Concurrent calls
// for the same account share one upstream exchange.
func (r *Refresher) Refresh(ctx context.Context, acct *Account) error {
	return r.inflight.Do(ctx, acct.Email, func(ctx context.Context) error {
		// A waiter may arrive after the winner already refreshed.
		if !acct.NeedsRefresh(0, r.now()) {
			return nil
		}
		return r.refresh(ctx, acct)
	})
}

func (r *Refresher) refresh(ctx context.Context, acct *Account) error {
	if acct.RefreshToken == "" {
		return fmt.Errorf("account %s has no refresh token", acct.Email)
	}

	clientID, clientSecret := acct.ClientID, acct.ClientSecret
	if clientID == "" {
		clientID, clientSecret = defaultClientID, defaultClientSecret
	}
	tokenURL := acct.TokenURI
	if tokenURL == "" {
		tokenURL = r.tokenURL
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: acct.RefreshToken}).Token()
	if err != nil {
		monitoring.TokenRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh token for %s: %w", acct.Email, err)
	}
	if token.AccessToken == "" {
		monitoring.TokenRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh response for %s carried no access token", acct.Email)
	}

	acct.setToken(token.AccessToken, token.Expiry)
	monitoring.TokenRefreshes.WithLabelValues("ok").Inc()
	log.WithField("email", acct.Email).Debug("access token refreshed")

	if r.persist != nil {
		if err := r.persist(acct); err != nil {
			log.WithError(err).WithField("email", acct.Email).Warn("failed to persist refreshed token")
		}
	}
	return nil
}

// InflightCoordinator coalesces concurrent operations keyed by account.
type InflightCoordinator struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	wg  sync.WaitGroup
	err error
}

func NewInflightCoordinator() *InflightCoordinator {
	return &InflightCoordinator{inflight: make(map[string]*flight)}
}

// Do runs fn unless another goroutine is already running it for the same
// key, in which case the caller waits for that run's result.
func (c *InflightCoordinator) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if key == "" {
		return fn(ctx)
	}
	c.mu.Lock()
	if f := c.inflight[key]; f != nil {
		c.mu.Unlock()
		done := make(chan struct{})
		go func() { f.wg.Wait(); close(done) }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return f.err
		}
	}
	f := &flight{}
	f.wg.Add(1)
	c.inflight[key] = f
	c.mu.Unlock()

	f.err = fn(ctx)
	f.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	return f.err
}
