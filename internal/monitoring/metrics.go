package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface metrics.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antigravity2api_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "path", "status_class"},
	)

	// Upstream call metrics.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"method", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antigravity2api_upstream_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)

	UpstreamRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_retry_attempts_total",
			Help: "Total number of upstream retry attempts by outcome",
		},
		[]string{"outcome"},
	)

	StreamPeekFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_stream_peek_failures_total",
			Help: "Total number of stream first-chunk validation failures",
		},
		[]string{"reason"},
	)

	// Account pool metrics.
	AccountRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_account_rotations_total",
			Help: "Total number of account rotations",
		},
		[]string{"request_type"},
	)

	AccountRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_account_rate_limited_total",
			Help: "Total number of rate-limit markings by status",
		},
		[]string{"status"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_token_refreshes_total",
			Help: "Total number of access-token refreshes",
		},
		[]string{"status"},
	)

	ActiveAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_active_accounts",
			Help: "Number of usable accounts in the pool",
		},
	)

	StickySessionHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "antigravity2api_sticky_session_hits_total",
			Help: "Total number of sticky session routing hits",
		},
	)

	StickySessionSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_sticky_session_size",
			Help: "Current number of sticky session entries",
		},
	)

	// Inbound rate limiting.
	RateLimitKeysGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_ratelimit_keys",
			Help: "Current number of per-key rate limiters",
		},
	)

	RateLimitSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "antigravity2api_ratelimit_sweeps_total",
			Help: "Total number of rate limiter TTL cache sweeps",
		},
	)

	// Token usage by model, split prompt/completion/total.
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_tokens_used_total",
			Help: "Total number of tokens used",
		},
		[]string{"model", "type"},
	)
)
