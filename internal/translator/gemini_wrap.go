package translator

import (
	"io"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GeminiToRequest prepares a native Gemini body for the envelope: tool
// parameter schemas are sanitised, everything else passes through.
func GeminiToRequest(rawJSON []byte) []byte {
	out := rawJSON
	for ti, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		for di, decl := range tool.Get("functionDeclarations").Array() {
			if params := decl.Get("parameters"); params.Exists() {
				path := "tools." + strconv.Itoa(ti) + ".functionDeclarations." + strconv.Itoa(di) + ".parameters"
				out, _ = sjson.SetRawBytes(out, path, CleanSchema([]byte(params.Raw)))
			}
		}
	}
	return out
}

// ResponseToGemini unwraps a unary upstream reply for the native Gemini
// surface. The inner response already has the generateContent shape, so
// unwrapping is the whole translation.
func ResponseToGemini(upstreamBody []byte) []byte {
	return UnwrapResponse(upstreamBody)
}

// GeminiStream passes upstream SSE chunks through with only the envelope
// removed. Comment lines survive as keepalives.
type GeminiStream struct {
	body    io.ReadCloser
	scanner *sseScanner
}

// NewGeminiStream wraps an upstream stream for :streamGenerateContent.
func NewGeminiStream(body io.ReadCloser) *GeminiStream {
	return &GeminiStream{body: body, scanner: newSSEScanner(body)}
}

func (s *GeminiStream) Close() error { return s.body.Close() }

func (s *GeminiStream) Next() ([]byte, error) {
	for {
		payload, comment, err := s.scanner.next()
		if err != nil {
			return nil, err
		}
		if comment != nil {
			return append(append([]byte{}, comment...), '\n', '\n'), nil
		}
		if string(payload) == "[DONE]" {
			return []byte("data: [DONE]\n\n"), nil
		}

		unwrapped := UnwrapResponse(payload)
		if gjson.GetBytes(unwrapped, "error").Exists() {
			return nil, &UpstreamStreamError{Payload: payload}
		}
		return append(append([]byte("data: "), unwrapped...), '\n', '\n'), nil
	}
}
