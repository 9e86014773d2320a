package constants

import "time"

// Upstream endpoint configuration.
const (
	// V1InternalBaseURL is the Cloud Code private API base. Methods are
	// appended with a colon, e.g. "…/v1internal:generateContent".
	V1InternalBaseURL = "https://cloudcode-pa.googleapis.com/v1internal"

	// UpstreamUserAgent is sent as the HTTP User-Agent on every upstream call.
	UpstreamUserAgent = "antigravity/1.11.9 windows/amd64"

	// EnvelopeUserAgent is the userAgent field inside the request envelope.
	EnvelopeUserAgent = "antigravity"
)

// HTTP client timeouts.
const (
	// UpstreamRequestTimeout bounds a whole upstream exchange, including
	// long-lived SSE streams.
	UpstreamRequestTimeout = 600 * time.Second

	DefaultDialTimeout         = 10 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultKeepAlive           = 30 * time.Second

	// StreamPeekTimeout bounds the wait for the first useful SSE chunk
	// before the stream is committed to the client.
	StreamPeekTimeout = 60 * time.Second

	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// SSE scanner buffers.
const (
	SSEScannerInitialBufferSize = 64 * 1024
	SSEScannerMaxBufferSize     = 4 * 1024 * 1024
)
