package translator

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"antigravity2api-go/internal/constants"
)

// Stream is a pull-based translated SSE stream. Next returns one fully
// formatted SSE block (including trailing blank line), io.EOF when the
// stream is finished, or an error. Every implementation guarantees its
// protocol's termination marker is emitted before EOF even when the
// upstream cuts off.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// UpstreamStreamError is returned by Next when the upstream emits an error
// event inside a 2xx stream. During the peek phase this makes the attempt
// retryable; after commit it is surfaced as a synthetic error chunk.
type UpstreamStreamError struct {
	Payload []byte
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("upstream stream error: %s", e.Payload)
}

// sseScanner yields upstream SSE data payloads line by line.
type sseScanner struct {
	sc *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, constants.SSEScannerInitialBufferSize), constants.SSEScannerMaxBufferSize)
	return &sseScanner{sc: sc}
}

// next returns the payload of the next "data: " line. Comment lines
// (starting with ':') are reported with comment=true and a nil payload is
// never returned for them; other noise lines are skipped. io.EOF ends the
// scan.
func (s *sseScanner) next() (payload []byte, comment []byte, err error) {
	for s.sc.Scan() {
		line := s.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == ':' {
			return nil, append([]byte(nil), line...), nil
		}
		if bytes.HasPrefix(line, []byte("data: ")) {
			data := bytes.TrimPrefix(line, []byte("data: "))
			if len(data) > 0 && data[0] == ':' {
				// heartbeat disguised as a data line
				return nil, append([]byte(nil), line...), nil
			}
			return append([]byte(nil), data...), nil, nil
		}
		// event:/id: framing lines are not needed by the upstream protocol
	}
	if err := s.sc.Err(); err != nil {
		return nil, nil, err
	}
	return nil, nil, io.EOF
}
