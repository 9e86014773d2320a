package translator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tidwall/gjson"
)

const (
	blockNone     = ""
	blockText     = "text"
	blockThinking = "thinking"
	blockToolUse  = "tool_use"
)

// ClaudeStream translates an upstream SSE body into the Anthropic event
// sequence: message_start, then content blocks, then message_delta and
// exactly one message_stop — even when the upstream cuts off mid-stream.
type ClaudeStream struct {
	body    io.ReadCloser
	scanner *sseScanner
	model   string

	queue [][]byte

	started          bool
	finished         bool
	blockIndex       int
	blockKind        string
	pendingSignature string
	sawToolUse       bool
	finishReason     string
	outputTokens     int64
}

// NewClaudeStream wraps an upstream stream for /v1/messages.
func NewClaudeStream(body io.ReadCloser, model string) *ClaudeStream {
	return &ClaudeStream{body: body, scanner: newSSEScanner(body), model: model, blockIndex: -1}
}

func (s *ClaudeStream) Close() error { return s.body.Close() }

func (s *ClaudeStream) Next() ([]byte, error) {
	for {
		if len(s.queue) > 0 {
			evt := s.queue[0]
			s.queue = s.queue[1:]
			return evt, nil
		}
		if s.finished {
			return nil, io.EOF
		}

		payload, comment, err := s.scanner.next()
		if err == io.EOF {
			s.finalize()
			continue
		}
		if err != nil {
			// Transport error mid-stream: close out the protocol before
			// surfacing, so the client still sees a well-formed message.
			if s.started {
				s.finalize()
				continue
			}
			return nil, err
		}
		if comment != nil {
			continue
		}
		if string(payload) == "[DONE]" {
			s.finalize()
			continue
		}

		result := gjson.ParseBytes(UnwrapResponse(payload))
		if result.Get("error").Exists() {
			if !s.started {
				return nil, &UpstreamStreamError{Payload: payload}
			}
			s.enqueueError(result.Get("error.message").String())
			s.finalize()
			continue
		}

		s.translateChunk(result)
	}
}

func (s *ClaudeStream) translateChunk(result gjson.Result) {
	if !s.started {
		s.started = true
		s.enqueue("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id":            fmt.Sprintf("msg_%d", time.Now().UnixNano()),
				"type":          "message",
				"role":          "assistant",
				"model":         s.model,
				"content":       []interface{}{},
				"stop_reason":   nil,
				"stop_sequence": nil,
				"usage": map[string]interface{}{
					"input_tokens":  result.Get("usageMetadata.promptTokenCount").Int(),
					"output_tokens": 0,
				},
			},
		})
	}

	candidate := result.Get("candidates.0")
	for _, part := range candidate.Get("content.parts").Array() {
		switch {
		case part.Get("thought").Bool():
			s.ensureBlock(blockThinking, nil)
			if sig := part.Get("thoughtSignature"); sig.Exists() {
				s.pendingSignature = sig.String()
			}
			s.enqueue("content_block_delta", map[string]interface{}{
				"type":  "content_block_delta",
				"index": s.blockIndex,
				"delta": map[string]interface{}{
					"type":     "thinking_delta",
					"thinking": part.Get("text").String(),
				},
			})

		case part.Get("functionCall").Exists():
			fnCall := part.Get("functionCall")
			s.sawToolUse = true
			// Every functionCall part opens a fresh tool_use block.
			s.closeBlock()
			id := fnCall.Get("id").String()
			if id == "" {
				id = fmt.Sprintf("toolu_%d", s.blockIndex+1)
			}
			s.openBlock(blockToolUse, map[string]interface{}{
				"type":  "tool_use",
				"id":    id,
				"name":  fnCall.Get("name").String(),
				"input": map[string]interface{}{},
			})
			args := "{}"
			if a := fnCall.Get("args"); a.Exists() {
				args = a.Raw
			}
			s.enqueue("content_block_delta", map[string]interface{}{
				"type":  "content_block_delta",
				"index": s.blockIndex,
				"delta": map[string]interface{}{
					"type":         "input_json_delta",
					"partial_json": args,
				},
			})
			s.closeBlock()

		case part.Get("text").Exists():
			s.ensureBlock(blockText, nil)
			s.enqueue("content_block_delta", map[string]interface{}{
				"type":  "content_block_delta",
				"index": s.blockIndex,
				"delta": map[string]interface{}{
					"type": "text_delta",
					"text": part.Get("text").String(),
				},
			})
		}
	}

	if usage := result.Get("usageMetadata.candidatesTokenCount"); usage.Exists() {
		s.outputTokens = usage.Int()
	}
	if fr := candidate.Get("finishReason"); fr.Exists() {
		s.finishReason = fr.String()
	}
}

// ensureBlock opens a block of the wanted kind, closing the current one if
// it differs.
func (s *ClaudeStream) ensureBlock(kind string, contentBlock map[string]interface{}) {
	if s.blockKind == kind {
		return
	}
	s.closeBlock()
	if contentBlock == nil {
		switch kind {
		case blockText:
			contentBlock = map[string]interface{}{"type": "text", "text": ""}
		case blockThinking:
			contentBlock = map[string]interface{}{"type": "thinking", "thinking": ""}
		}
	}
	s.openBlock(kind, contentBlock)
}

func (s *ClaudeStream) openBlock(kind string, contentBlock map[string]interface{}) {
	s.blockIndex++
	s.blockKind = kind
	s.enqueue("content_block_start", map[string]interface{}{
		"type":          "content_block_start",
		"index":         s.blockIndex,
		"content_block": contentBlock,
	})
}

func (s *ClaudeStream) closeBlock() {
	if s.blockKind == blockNone {
		return
	}
	if s.blockKind == blockThinking && s.pendingSignature != "" {
		s.enqueue("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": s.blockIndex,
			"delta": map[string]interface{}{
				"type":      "signature_delta",
				"signature": s.pendingSignature,
			},
		})
		s.pendingSignature = ""
	}
	s.enqueue("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": s.blockIndex,
	})
	s.blockKind = blockNone
}

// finalize closes any open block and emits the terminal events. Safe to
// call more than once; message_stop goes out exactly once.
func (s *ClaudeStream) finalize() {
	if s.finished {
		return
	}
	s.finished = true
	s.closeBlock()
	if s.started && s.finishReason != "" {
		s.enqueue("message_delta", map[string]interface{}{
			"type": "message_delta",
			"delta": map[string]interface{}{
				"stop_reason":   claudeStopReason(s.finishReason, s.sawToolUse),
				"stop_sequence": nil,
			},
			"usage": map[string]interface{}{"output_tokens": s.outputTokens},
		})
	}
	if s.started {
		s.enqueue("message_stop", map[string]interface{}{"type": "message_stop"})
	}
}

func (s *ClaudeStream) enqueue(event string, payload map[string]interface{}) {
	data, _ := json.Marshal(payload)
	block := append([]byte("event: "+event+"\ndata: "), data...)
	block = append(block, '\n', '\n')
	s.queue = append(s.queue, block)
}

func (s *ClaudeStream) enqueueError(message string) {
	s.enqueue("error", map[string]interface{}{
		"type": "error",
		"error": map[string]interface{}{
			"type":    "api_error",
			"message": message,
		},
	})
}
