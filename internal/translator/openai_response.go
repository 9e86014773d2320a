package translator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ResponseToOpenAIChat converts a unary upstream reply into an OpenAI
// chat.completion body. Upstream errors pass through untouched.
func ResponseToOpenAIChat(upstreamBody []byte, model string) []byte {
	result := gjson.ParseBytes(UnwrapResponse(upstreamBody))

	if result.Get("error").Exists() {
		return upstreamBody
	}

	candidates := result.Get("candidates")
	// Marshals as [] rather than null when the reply carries no candidates.
	choices := []map[string]interface{}{}

	for idx, candidate := range candidates.Array() {
		parts := candidate.Get("content.parts").Array()

		var messageContent strings.Builder
		var reasoningContent strings.Builder
		var toolCalls []map[string]interface{}

		for _, part := range parts {
			if part.Get("thought").Bool() {
				reasoningContent.WriteString(part.Get("text").String())
				continue
			}
			if text := part.Get("text"); text.Exists() {
				messageContent.WriteString(text.String())
			}
			if fnCall := part.Get("functionCall"); fnCall.Exists() {
				toolCalls = append(toolCalls, openAIToolCall(fnCall, len(toolCalls)))
			}
		}

		message := map[string]interface{}{
			"role":    "assistant",
			"content": messageContent.String(),
		}
		if reasoningContent.Len() > 0 {
			message["reasoning_content"] = reasoningContent.String()
		}
		if len(toolCalls) > 0 {
			message["tool_calls"] = toolCalls
		}

		finishReason := mapFinishReason(candidate.Get("finishReason").String())
		if len(toolCalls) > 0 {
			finishReason = "tool_calls"
		}

		choices = append(choices, map[string]interface{}{
			"index":         idx,
			"message":       message,
			"finish_reason": finishReason,
		})
	}

	response := map[string]interface{}{
		"id":      fmt.Sprintf("chatcmpl-%d", time.Now().Unix()),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": choices,
		"usage":   openAIUsage(result.Get("usageMetadata")),
	}

	out, _ := json.Marshal(response)
	return out
}

// ResponseToOpenAILegacy converts a unary upstream reply into the legacy
// text_completion shape used by /v1/completions.
func ResponseToOpenAILegacy(upstreamBody []byte, model string) []byte {
	result := gjson.ParseBytes(UnwrapResponse(upstreamBody))

	if result.Get("error").Exists() {
		return upstreamBody
	}

	var text strings.Builder
	candidate := result.Get("candidates.0")
	for _, part := range candidate.Get("content.parts").Array() {
		if part.Get("thought").Bool() {
			continue
		}
		text.WriteString(part.Get("text").String())
	}

	response := map[string]interface{}{
		"id":      fmt.Sprintf("cmpl-%d", time.Now().Unix()),
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"text":          text.String(),
			"finish_reason": mapFinishReason(candidate.Get("finishReason").String()),
		}},
		"usage": openAIUsage(result.Get("usageMetadata")),
	}

	out, _ := json.Marshal(response)
	return out
}

func openAIToolCall(fnCall gjson.Result, index int) map[string]interface{} {
	fnName := fnCall.Get("name").String()
	args := "{}"
	if fnArgs := fnCall.Get("args"); fnArgs.Exists() {
		args = fnArgs.Raw
	}
	id := fnCall.Get("id").String()
	if id == "" {
		id = fmt.Sprintf("call_%s_%d", fnName, index)
	}
	return map[string]interface{}{
		"id":   id,
		"type": "function",
		"function": map[string]interface{}{
			"name":      fnName,
			"arguments": args,
		},
	}
}

func mapFinishReason(upstream string) string {
	switch upstream {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}

func openAIUsage(usage gjson.Result) map[string]interface{} {
	prompt := usage.Get("promptTokenCount").Int()
	completion := usage.Get("candidatesTokenCount").Int()
	reasoning := usage.Get("thoughtsTokenCount").Int()
	return map[string]interface{}{
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      prompt + completion + reasoning,
		"completion_tokens_details": map[string]interface{}{
			"reasoning_tokens": reasoning,
		},
	}
}
