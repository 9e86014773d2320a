package translator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// IsResponsesShape reports whether an OpenAI body uses the Responses/Codex
// layout (instructions/input) rather than Chat Completions messages.
func IsResponsesShape(rawJSON []byte) bool {
	if gjson.GetBytes(rawJSON, "messages").Exists() {
		return false
	}
	return gjson.GetBytes(rawJSON, "instructions").Exists() ||
		gjson.GetBytes(rawJSON, "input").Exists()
}

// NormalizeResponsesRequest reshapes a Responses/Codex body into the Chat
// Completions layout so both paths share one mapper. The instructions field
// becomes a leading system message; input items become messages. Tool
// outputs are matched to their originating call through a call_id→name map
// built in a first pass.
func NormalizeResponsesRequest(rawJSON []byte) []byte {
	var messages []interface{}

	if inst := gjson.GetBytes(rawJSON, "instructions"); inst.Exists() && inst.String() != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": inst.String(),
		})
	}

	input := gjson.GetBytes(rawJSON, "input")
	switch {
	case input.Type == gjson.String:
		messages = append(messages, map[string]interface{}{
			"role":    "user",
			"content": input.String(),
		})
	case input.IsArray():
		// First pass: call_id → tool name, including the renamed built-ins.
		callNames := make(map[string]string)
		for _, item := range input.Array() {
			callID := item.Get("call_id").String()
			if callID == "" {
				continue
			}
			switch item.Get("type").String() {
			case "function_call":
				callNames[callID] = item.Get("name").String()
			case "local_shell_call":
				callNames[callID] = "shell"
			case "web_search_call":
				callNames[callID] = "google_search"
			}
		}

		for _, item := range input.Array() {
			if msg := responsesItemToMessage(item, callNames); msg != nil {
				messages = append(messages, msg)
			}
		}
	}

	out := map[string]interface{}{"messages": messages}

	// Carry sampling fields across so the shared mapper sees them.
	copyField := func(src, dst string) {
		if v := gjson.GetBytes(rawJSON, src); v.Exists() {
			var decoded interface{}
			if err := json.Unmarshal([]byte(v.Raw), &decoded); err == nil {
				out[dst] = decoded
			}
		}
	}
	copyField("model", "model")
	copyField("temperature", "temperature")
	copyField("top_p", "top_p")
	copyField("max_output_tokens", "max_tokens")
	copyField("reasoning.effort", "reasoning_effort")
	copyField("stream", "stream")
	copyField("tools", "tools")

	encoded, _ := json.Marshal(out)
	return encoded
}

func responsesItemToMessage(item gjson.Result, callNames map[string]string) map[string]interface{} {
	switch item.Get("type").String() {
	case "message":
		role := strings.ToLower(item.Get("role").String())
		if role != "assistant" && role != "system" {
			role = "user"
		}
		content := item.Get("content")
		if content.Type == gjson.String {
			return map[string]interface{}{"role": role, "content": content.String()}
		}
		var parts []interface{}
		for _, ci := range content.Array() {
			switch ci.Get("type").String() {
			case "input_image", "image_url":
				url := ci.Get("image_url").String()
				if url == "" {
					url = ci.Get("image_url.url").String()
				}
				parts = append(parts, map[string]interface{}{
					"type":      "image_url",
					"image_url": map[string]interface{}{"url": url},
				})
			default:
				if txt := ci.Get("text").String(); txt != "" {
					parts = append(parts, map[string]interface{}{"type": "text", "text": txt})
				}
			}
		}
		return map[string]interface{}{"role": role, "content": parts}

	case "function_call":
		return assistantToolCall(item.Get("call_id").String(), item.Get("name").String(), item.Get("arguments").String())

	case "local_shell_call":
		// Normalised to a plain "shell" tool; command is forced to an
		// array of strings whatever the client sent.
		command := item.Get("action.command")
		var cmd []string
		if command.IsArray() {
			for _, c := range command.Array() {
				cmd = append(cmd, c.String())
			}
		} else if command.String() != "" {
			cmd = []string{command.String()}
		}
		args, _ := json.Marshal(map[string]interface{}{"command": cmd})
		return assistantToolCall(item.Get("call_id").String(), "shell", string(args))

	case "web_search_call":
		args := item.Get("action").Raw
		if args == "" {
			args = "{}"
		}
		return assistantToolCall(item.Get("call_id").String(), "google_search", args)

	case "function_call_output", "custom_tool_call_output":
		callID := item.Get("call_id").String()
		return map[string]interface{}{
			"role":         "tool",
			"tool_call_id": callID,
			"name":         callNames[callID],
			"content":      item.Get("output").String(),
		}
	}
	return nil
}

func assistantToolCall(callID, name, arguments string) map[string]interface{} {
	if arguments == "" {
		arguments = "{}"
	}
	return map[string]interface{}{
		"role": "assistant",
		"tool_calls": []interface{}{
			map[string]interface{}{
				"id":   callID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      name,
					"arguments": arguments,
				},
			},
		},
	}
}
