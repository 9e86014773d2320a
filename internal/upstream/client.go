package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/proxy"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/monitoring/tracing"
)

// Client posts envelopes to the v1internal API. A single instance is shared
// across requests; the transport is rebuilt only when the proxy changes.
type Client struct {
	mu      sync.RWMutex
	http    *http.Client
	proxy   config.ProxyConfig
	baseURL string
	tracer  trace.Tracer
}

// NewClient builds a client honouring the given outbound proxy settings.
func NewClient(proxyCfg config.ProxyConfig) *Client {
	c := &Client{baseURL: constants.V1InternalBaseURL, tracer: tracing.Tracer("upstream")}
	c.http = buildHTTPClient(proxyCfg)
	c.proxy = proxyCfg
	return c
}

// SetBaseURL redirects calls to a different endpoint. Tests point this at
// a local stub.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = u
}

func (c *Client) base() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// UpdateProxy swaps the outbound proxy. In-flight requests keep the old
// transport; new calls observe the new one.
func (c *Client) UpdateProxy(proxyCfg config.ProxyConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proxy == proxyCfg {
		return
	}
	c.http = buildHTTPClient(proxyCfg)
	c.proxy = proxyCfg
	log.WithField("enabled", proxyCfg.Enabled).Info("upstream proxy updated")
}

func (c *Client) client() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.http
}

func buildHTTPClient(proxyCfg config.ProxyConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   constants.DefaultDialTimeout,
		KeepAlive: constants.DefaultKeepAlive,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: constants.DefaultTLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	if proxyCfg.Enabled && proxyCfg.URL != "" {
		u, err := url.Parse(proxyCfg.URL)
		if err != nil {
			log.WithError(err).Warn("invalid proxy url; continuing without proxy")
		} else if u.Scheme == "socks5" {
			d, err := proxy.FromURL(u, dialer)
			if err != nil {
				log.WithError(err).Warn("socks5 proxy setup failed; continuing without proxy")
			} else if cd, ok := d.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			}
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   constants.UpstreamRequestTimeout,
	}
}

// Call posts body to v1internal:<method>. query, when non-empty, is
// appended verbatim (e.g. "alt=sse"). The caller owns the response body.
func (c *Client) Call(ctx context.Context, method, accessToken string, body []byte, query string) (*http.Response, error) {
	endpoint := c.base() + ":" + method
	if query != "" {
		endpoint += "?" + query
	}

	ctx, span := c.tracer.Start(ctx, "upstream.call",
		trace.WithAttributes(attribute.String("upstream.method", method)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", constants.UpstreamUserAgent)

	start := time.Now()
	resp, err := c.client().Do(req)
	monitoring.UpstreamRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.UpstreamRequestsTotal.WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("upstream %s: %w", method, err)
	}

	monitoring.UpstreamRequestsTotal.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, nil
}

// FetchAvailableModels posts an empty object to :fetchAvailableModels.
func (c *Client) FetchAvailableModels(ctx context.Context, accessToken string) (*http.Response, error) {
	return c.Call(ctx, "fetchAvailableModels", accessToken, []byte("{}"), "")
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
