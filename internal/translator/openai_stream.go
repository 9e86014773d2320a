package translator

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

var openAIChunkSeq uint64

func nextChunkID(prefix string) string {
	n := atomic.AddUint64(&openAIChunkSeq, 1)
	return prefix + "-" + strconv.FormatInt(time.Now().Unix(), 10) + "-" + strconv.FormatUint(n, 10)
}

// OpenAIStream translates an upstream SSE body into OpenAI
// chat.completion.chunk events, terminating with data: [DONE] even when
// the upstream ends without a finish reason.
type OpenAIStream struct {
	body      io.ReadCloser
	scanner   *sseScanner
	model     string
	legacy    bool
	roleSent  bool
	doneSent  bool
	toolCalls int
}

// NewOpenAIStream wraps an upstream stream for /v1/chat/completions.
func NewOpenAIStream(body io.ReadCloser, model string) *OpenAIStream {
	return &OpenAIStream{body: body, scanner: newSSEScanner(body), model: model}
}

// NewOpenAILegacyStream wraps an upstream stream for /v1/completions,
// emitting text_completion chunks instead of chat deltas.
func NewOpenAILegacyStream(body io.ReadCloser, model string) *OpenAIStream {
	return &OpenAIStream{body: body, scanner: newSSEScanner(body), model: model, legacy: true}
}

func (s *OpenAIStream) Close() error { return s.body.Close() }

func (s *OpenAIStream) Next() ([]byte, error) {
	for {
		payload, comment, err := s.scanner.next()
		if err == io.EOF {
			if !s.doneSent {
				s.doneSent = true
				return []byte("data: [DONE]\n\n"), nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if comment != nil {
			continue
		}
		if string(payload) == "[DONE]" {
			s.doneSent = true
			return []byte("data: [DONE]\n\n"), nil
		}

		result := gjson.ParseBytes(UnwrapResponse(payload))
		if result.Get("error").Exists() {
			return nil, &UpstreamStreamError{Payload: payload}
		}

		chunk := s.buildChunk(result)
		if chunk == nil {
			continue
		}
		return append(append([]byte("data: "), chunk...), '\n', '\n'), nil
	}
}

func (s *OpenAIStream) buildChunk(result gjson.Result) []byte {
	candidate := result.Get("candidates.0")
	if !candidate.Exists() {
		return nil
	}

	if s.legacy {
		return s.buildLegacyChunk(candidate, result)
	}

	delta := map[string]interface{}{}
	if !s.roleSent {
		delta["role"] = "assistant"
		s.roleSent = true
	}

	// A chunk may carry several parts (parallel tool calls arrive this
	// way); accumulate them all into one delta.
	var content, reasoning strings.Builder
	sawText, sawThought := false, false
	var toolCalls []interface{}
	for _, part := range candidate.Get("content.parts").Array() {
		if part.Get("thought").Bool() {
			reasoning.WriteString(part.Get("text").String())
			sawThought = true
			continue
		}
		if text := part.Get("text"); text.Exists() {
			content.WriteString(text.String())
			sawText = true
		}
		if fnCall := part.Get("functionCall"); fnCall.Exists() {
			call := openAIToolCall(fnCall, s.toolCalls)
			call["index"] = s.toolCalls
			toolCalls = append(toolCalls, call)
			s.toolCalls++
		}
	}
	if sawThought {
		delta["reasoning_content"] = reasoning.String()
	}
	if sawText {
		delta["content"] = content.String()
	}
	if len(toolCalls) > 0 {
		delta["tool_calls"] = toolCalls
	}

	choice := map[string]interface{}{
		"index":         0,
		"delta":         delta,
		"finish_reason": nil,
	}

	chunk := map[string]interface{}{
		"id":      nextChunkID("chatcmpl"),
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   s.model,
		"choices": []interface{}{choice},
	}

	if fr := candidate.Get("finishReason"); fr.Exists() {
		finish := mapFinishReason(fr.String())
		if s.toolCalls > 0 {
			finish = "tool_calls"
		}
		choice["finish_reason"] = finish
		if usage := result.Get("usageMetadata"); usage.Exists() {
			chunk["usage"] = openAIUsage(usage)
		}
	}

	out, _ := json.Marshal(chunk)
	return out
}

func (s *OpenAIStream) buildLegacyChunk(candidate, result gjson.Result) []byte {
	var text string
	for _, part := range candidate.Get("content.parts").Array() {
		if part.Get("thought").Bool() {
			continue
		}
		text += part.Get("text").String()
	}

	choice := map[string]interface{}{
		"index":         0,
		"text":          text,
		"finish_reason": nil,
	}
	chunk := map[string]interface{}{
		"id":      nextChunkID("cmpl"),
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   s.model,
		"choices": []interface{}{choice},
	}
	if fr := candidate.Get("finishReason"); fr.Exists() {
		choice["finish_reason"] = mapFinishReason(fr.String())
		if usage := result.Get("usageMetadata"); usage.Exists() {
			chunk["usage"] = openAIUsage(usage)
		}
	}

	out, _ := json.Marshal(chunk)
	return out
}

// SyntheticErrorChunk renders a mid-stream failure as an OpenAI-style SSE
// error block, used after the stream has been committed to the client.
func SyntheticErrorChunk(message string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{"error": message})
	return append(append([]byte("data: "), payload...), '\n', '\n')
}
