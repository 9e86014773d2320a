package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/translator"
)

// PrepareSSE sets the streaming headers and returns the flusher, or nil
// when the writer cannot stream.
func PrepareSSE(c *gin.Context) http.Flusher {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil
	}
	return flusher
}

// WriteChunk writes one pre-formatted SSE block and flushes.
func WriteChunk(w http.ResponseWriter, flusher http.Flusher, chunk []byte) error {
	if _, err := w.Write(chunk); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// CopyStream drains a translated stream into the response. Mid-stream
// upstream errors become a synthetic error chunk; the client connection
// going away ends the copy quietly.
func CopyStream(c *gin.Context, s translator.Stream, flusher http.Flusher) {
	defer s.Close()
	for {
		chunk, err := s.Next()
		if err != nil {
			if streamErr, ok := err.(*translator.UpstreamStreamError); ok {
				_ = WriteChunk(c.Writer, flusher, translator.SyntheticErrorChunk(streamErr.Error()))
			}
			return
		}
		select {
		case <-c.Request.Context().Done():
			return
		default:
		}
		if err := WriteChunk(c.Writer, flusher, chunk); err != nil {
			return
		}
	}
}
