package translator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ResponseToClaude converts a unary upstream reply into an Anthropic
// Messages body. Upstream errors pass through untouched.
func ResponseToClaude(upstreamBody []byte, model string) []byte {
	result := gjson.ParseBytes(UnwrapResponse(upstreamBody))

	if result.Get("error").Exists() {
		return upstreamBody
	}

	candidate := result.Get("candidates.0")
	// Marshals as [] rather than null when the reply carries no parts.
	blocks := []map[string]interface{}{}
	sawToolUse := false

	for _, part := range candidate.Get("content.parts").Array() {
		switch {
		case part.Get("thought").Bool():
			block := map[string]interface{}{
				"type":     "thinking",
				"thinking": part.Get("text").String(),
			}
			if sig := part.Get("thoughtSignature"); sig.Exists() {
				block["signature"] = sig.String()
			}
			blocks = append(blocks, block)

		case part.Get("functionCall").Exists():
			fnCall := part.Get("functionCall")
			sawToolUse = true
			id := fnCall.Get("id").String()
			if id == "" {
				id = fmt.Sprintf("toolu_%d", len(blocks))
			}
			var input interface{}
			if args := fnCall.Get("args"); args.Exists() {
				_ = json.Unmarshal([]byte(args.Raw), &input)
			}
			if input == nil {
				input = map[string]interface{}{}
			}
			blocks = append(blocks, map[string]interface{}{
				"type":  "tool_use",
				"id":    id,
				"name":  fnCall.Get("name").String(),
				"input": input,
			})

		case part.Get("text").Exists():
			blocks = append(blocks, map[string]interface{}{
				"type": "text",
				"text": part.Get("text").String(),
			})
		}
	}

	stopReason := claudeStopReason(candidate.Get("finishReason").String(), sawToolUse)

	usage := result.Get("usageMetadata")
	response := map[string]interface{}{
		"id":            fmt.Sprintf("msg_%d", time.Now().UnixNano()),
		"type":          "message",
		"role":          "assistant",
		"model":         model,
		"content":       blocks,
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage": map[string]interface{}{
			"input_tokens":  usage.Get("promptTokenCount").Int(),
			"output_tokens": usage.Get("candidatesTokenCount").Int(),
		},
	}

	out, _ := json.Marshal(response)
	return out
}

func claudeStopReason(finishReason string, sawToolUse bool) string {
	if sawToolUse {
		return "tool_use"
	}
	switch finishReason {
	case "MAX_TOKENS":
		return "max_tokens"
	default:
		return "end_turn"
	}
}
