package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/translator"
	"antigravity2api-go/internal/upstream"
)

// HTTPError carries an upstream status and body back to the client
// unchanged.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Request describes one dispatch through the pool. Build is re-invoked on
// every attempt so each envelope carries a fresh request id and the picked
// account's project.
type Request struct {
	Method        string
	Query         string
	RequestType   string
	SessionID     string
	OriginalModel string
	MappedModel   string
	Stream        bool

	Build     func(projectID string) []byte
	NewStream func(body io.ReadCloser) translator.Stream
}

// Result is a successful dispatch: a unary body or a committed stream.
type Result struct {
	Email  string
	Body   []byte
	Stream translator.Stream
}

// Dispatcher runs the account-rotation retry loop.
type Dispatcher struct {
	Pool     *credential.Manager
	Upstream *upstream.Client
}

// Dispatch tries up to min(pool, 3) accounts. Rotation is forced from the
// second attempt; QUOTA_EXHAUSTED and non-retryable statuses pass the
// upstream response through as-is.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	maxAttempts := d.Pool.Len()
	if maxAttempts > constants.MaxRetryAttempts {
		maxAttempts = constants.MaxRetryAttempts
	}
	// A single-account pool still gets one retry so a short hinted wait
	// (e.g. 429 with retryDelay) can recover without rotating.
	if maxAttempts < 2 {
		maxAttempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pick, err := d.Pool.Pick(ctx, req.RequestType, attempt > 0, req.SessionID, req.OriginalModel)
		if err != nil {
			if errors.Is(err, credential.ErrNoneAvailable) {
				return nil, &HTTPError{
					Status: http.StatusServiceUnavailable,
					Body:   []byte(fmt.Sprintf(`{"error":{"message":"Token error: %v","type":"api_error"}}`, err)),
				}
			}
			lastErr = err
			continue
		}

		result, retry, err := d.attempt(ctx, req, pick, attempt)
		if err == nil {
			monitoring.UpstreamRetryAttempts.WithLabelValues("success").Inc()
			return result, nil
		}
		if !retry {
			monitoring.UpstreamRetryAttempts.WithLabelValues("passthrough").Inc()
			return nil, err
		}
		monitoring.UpstreamRetryAttempts.WithLabelValues("retry").Inc()
		lastErr = err
	}

	msg := fmt.Sprintf("All %d attempts failed. Last error: %v", maxAttempts, lastErr)
	log.WithField("request_type", req.RequestType).Warn(msg)
	return nil, &HTTPError{
		Status: http.StatusTooManyRequests,
		Body:   []byte(fmt.Sprintf(`{"error":{"message":%q,"type":"rate_limit_error"}}`, msg)),
	}
}

// attempt runs one upstream exchange. retry reports whether the loop may
// continue with another account.
func (d *Dispatcher) attempt(ctx context.Context, req *Request, pick credential.Pick, attempt int) (*Result, bool, error) {
	body := req.Build(pick.ProjectID)

	resp, err := d.Upstream.Call(ctx, req.Method, pick.AccessToken, body, req.Query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.Stream {
			return d.commitStream(ctx, req, pick, resp)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read upstream body: %w", err)
		}
		d.Pool.MarkSuccess(pick.Email, req.RequestType)
		recordTokenUsage(req.MappedModel, payload)
		return &Result{Email: pick.Email, Body: payload}, false, nil
	}

	defer resp.Body.Close()
	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	retryAfter := resp.Header.Get("Retry-After")

	strategy := upstream.DecideRetry(resp.StatusCode, retryAfter, errBody, attempt)
	if strategy.Passthrough || !strategy.Retryable {
		if strategy.Passthrough {
			// Quota exhaustion parks the account without burning the rest
			// of the pool.
			d.Pool.MarkRateLimited(pick.Email, resp.StatusCode, retryAfter, errBody, req.RequestType, req.MappedModel)
		}
		return nil, false, &HTTPError{Status: resp.StatusCode, Body: errBody}
	}

	d.Pool.MarkRateLimited(pick.Email, resp.StatusCode, retryAfter, errBody, req.RequestType, req.MappedModel)
	if err := sleep(ctx, strategy.Delay); err != nil {
		return nil, false, err
	}
	return nil, true, fmt.Errorf("upstream status %d from %s", resp.StatusCode, pick.Email)
}

func (d *Dispatcher) commitStream(ctx context.Context, req *Request, pick credential.Pick, resp *http.Response) (*Result, bool, error) {
	s := req.NewStream(resp.Body)
	prefix, err := upstream.Peek(ctx, s, constants.StreamPeekTimeout)
	if err != nil {
		_ = s.Close()
		if ctx.Err() != nil {
			// Client cancel during peek does not count against the account.
			return nil, false, ctx.Err()
		}
		if streamErr, ok := err.(*translator.UpstreamStreamError); ok {
			status := int(gjson.GetBytes(streamErr.Payload, "error.code").Int())
			if status == 0 {
				status = http.StatusInternalServerError
			}
			d.Pool.MarkRateLimited(pick.Email, status, "", streamErr.Payload, req.RequestType, req.MappedModel)
			return nil, true, streamErr
		}
		return nil, true, err
	}

	d.Pool.MarkSuccess(pick.Email, req.RequestType)
	return &Result{Email: pick.Email, Stream: upstream.NewSpliced(prefix, s)}, false, nil
}

// recordTokenUsage exports the upstream-reported token counts for the
// mapped model. Streams carry usage only in their final chunk, which goes
// straight to the client, so only unary exchanges are counted here.
func recordTokenUsage(model string, payload []byte) {
	usage := gjson.GetBytes(payload, "response.usageMetadata")
	if !usage.Exists() {
		usage = gjson.GetBytes(payload, "usageMetadata")
	}
	if !usage.Exists() {
		return
	}
	prompt := usage.Get("promptTokenCount").Int()
	completion := usage.Get("candidatesTokenCount").Int()
	total := prompt + completion + usage.Get("thoughtsTokenCount").Int()
	monitoring.TokensUsed.WithLabelValues(model, "prompt").Add(float64(prompt))
	monitoring.TokensUsed.WithLabelValues(model, "completion").Add(float64(completion))
	monitoring.TokensUsed.WithLabelValues(model, "total").Add(float64(total))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
