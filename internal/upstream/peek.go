package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"antigravity2api-go/internal/monitoring"
	"antigravity2api-go/internal/translator"
)

// ErrEmptyStream marks a 2xx stream that ended before producing a useful
// chunk. The dispatcher treats it as retryable.
var ErrEmptyStream = errors.New("upstream stream ended without content")

var doneChunk = []byte("data: [DONE]\n\n")

// Peek pulls chunks from a freshly mapped stream until the first real one,
// bounded by timeout. It returns everything pulled so far (heartbeats plus
// the first real chunk) for the caller to splice back via Spliced. An
// *translator.UpstreamStreamError or ErrEmptyStream means the attempt
// should rotate; ctx cancellation means the client went away.
func Peek(ctx context.Context, s translator.Stream, timeout time.Duration) ([][]byte, error) {
	type pulled struct {
		prefix [][]byte
		err    error
	}
	ch := make(chan pulled, 1)

	go func() {
		var prefix [][]byte
		for {
			chunk, err := s.Next()
			if err == io.EOF {
				ch <- pulled{prefix: prefix, err: ErrEmptyStream}
				return
			}
			if err != nil {
				ch <- pulled{prefix: prefix, err: err}
				return
			}
			prefix = append(prefix, chunk)
			if bytes.HasPrefix(chunk, []byte(":")) || bytes.HasPrefix(chunk, []byte("data: :")) {
				continue
			}
			if bytes.Equal(chunk, doneChunk) {
				// [DONE] with nothing before it: the stream was empty.
				ch <- pulled{prefix: prefix, err: ErrEmptyStream}
				return
			}
			ch <- pulled{prefix: prefix}
			return
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		if p.err != nil {
			reason := "empty"
			if _, ok := p.err.(*translator.UpstreamStreamError); ok {
				reason = "error_event"
			}
			monitoring.StreamPeekFailures.WithLabelValues(reason).Inc()
			return nil, p.err
		}
		return p.prefix, nil
	case <-timer.C:
		monitoring.StreamPeekFailures.WithLabelValues("timeout").Inc()
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Spliced replays the peeked prefix before handing off to the live stream.
type Spliced struct {
	prefix [][]byte
	inner  translator.Stream
}

// NewSpliced wraps a stream with the chunks Peek already consumed.
func NewSpliced(prefix [][]byte, inner translator.Stream) *Spliced {
	return &Spliced{prefix: prefix, inner: inner}
}

func (s *Spliced) Next() ([]byte, error) {
	if len(s.prefix) > 0 {
		chunk := s.prefix[0]
		s.prefix = s.prefix[1:]
		return chunk, nil
	}
	return s.inner.Next()
}

func (s *Spliced) Close() error { return s.inner.Close() }
