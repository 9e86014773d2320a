package translator

import (
	"encoding/json"
	"strings"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OpenAIChatToRequest converts an OpenAI Chat Completions body into the
// inner Gemini request (contents, systemInstruction, tools,
// generationConfig). The caller wraps it in the envelope afterwards.
func OpenAIChatToRequest(rawJSON []byte) []byte {
	out := `{"contents":[]}`

	genConfig := buildGenerationConfig(rawJSON)
	genConfigJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genConfigJSON))

	contents, systemInstructions := translateOpenAIMessages(rawJSON)
	contents = mergeConsecutiveMessages(contents)
	contents = ensureNonEmptyContents(contents)

	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if len(systemInstructions) > 0 {
		sysJSON, _ := json.Marshal(map[string]interface{}{
			"role":  "user",
			"parts": systemInstructions,
		})
		out, _ = sjson.SetRaw(out, "systemInstruction", string(sysJSON))
	}

	out = applyToolDeclarations(out, rawJSON)
	out = applyResponseFormat(out, rawJSON)

	return []byte(out)
}

func buildGenerationConfig(rawJSON []byte) map[string]interface{} {
	genConfig := make(map[string]interface{})
	genConfig["candidateCount"] = 1

	if temp := gjson.GetBytes(rawJSON, "temperature"); temp.Exists() {
		genConfig["temperature"] = temp.Value()
	}
	if topP := gjson.GetBytes(rawJSON, "top_p"); topP.Exists() {
		genConfig["topP"] = topP.Value()
	}
	if topK := gjson.GetBytes(rawJSON, "top_k"); topK.Exists() {
		genConfig["topK"] = int(topK.Int())
	}

	maxTokensValue := -1
	if maxTokens := gjson.GetBytes(rawJSON, "max_tokens"); maxTokens.Exists() {
		maxTokensValue = int(maxTokens.Int())
	}
	if maxCompTokens := gjson.GetBytes(rawJSON, "max_completion_tokens"); maxCompTokens.Exists() {
		maxTokensValue = int(maxCompTokens.Int())
	}
	if maxTokensValue > 0 {
		if maxTokensValue > constants.MaxOutputTokensCap {
			maxTokensValue = constants.MaxOutputTokensCap
		}
		genConfig["maxOutputTokens"] = maxTokensValue
	}

	if n := gjson.GetBytes(rawJSON, "n"); n.Exists() {
		genConfig["candidateCount"] = int(n.Int())
	}
	if seed := gjson.GetBytes(rawJSON, "seed"); seed.Exists() {
		genConfig["seed"] = int(seed.Int())
	}

	if reasoningEffort := gjson.GetBytes(rawJSON, "reasoning_effort"); reasoningEffort.Exists() {
		genConfig["thinkingConfig"] = buildThinkingConfig(reasoningEffort.String())
	}

	if stop := gjson.GetBytes(rawJSON, "stop"); stop.Exists() {
		if stopSeqs := collectStopSequences(stop); len(stopSeqs) > 0 {
			genConfig["stopSequences"] = stopSeqs
		}
	}

	return genConfig
}

func buildThinkingConfig(effort string) map[string]interface{} {
	thinkingConfig := make(map[string]interface{})

	switch effort {
	case "none":
		thinkingConfig["thinkingBudget"] = 0
	case "low":
		thinkingConfig["thinkingBudget"] = 1024
		thinkingConfig["includeThoughts"] = true
	case "medium":
		thinkingConfig["thinkingBudget"] = 8192
		thinkingConfig["includeThoughts"] = true
	case "high":
		thinkingConfig["thinkingBudget"] = 24576
		thinkingConfig["includeThoughts"] = true
	default: // "auto" and anything unknown
		thinkingConfig["thinkingBudget"] = -1
		thinkingConfig["includeThoughts"] = true
	}
	return thinkingConfig
}

func collectStopSequences(stop gjson.Result) []string {
	var stopSeqs []string
	if stop.IsArray() {
		for _, s := range stop.Array() {
			stopSeqs = append(stopSeqs, s.String())
		}
	} else {
		stopSeqs = append(stopSeqs, stop.String())
	}
	return stopSeqs
}

func translateOpenAIMessages(rawJSON []byte) ([]interface{}, []interface{}) {
	messages := gjson.GetBytes(rawJSON, "messages")
	var contents []interface{}
	var systemInstructions []interface{}

	// First pass: record tool-call ids so later tool messages can be
	// emitted with the right functionResponse name.
	callNames := make(map[string]string)
	for _, msg := range messages.Array() {
		for _, tc := range msg.Get("tool_calls").Array() {
			if id := tc.Get("id").String(); id != "" {
				callNames[id] = tc.Get("function.name").String()
			}
		}
	}

	for _, msg := range messages.Array() {
		role := msg.Get("role").String()
		content := msg.Get("content")

		switch role {
		case "system", "developer":
			if content.IsArray() {
				for _, part := range content.Array() {
					systemInstructions = append(systemInstructions, convertContentPart(part))
				}
			} else if content.String() != "" {
				systemInstructions = append(systemInstructions, map[string]interface{}{
					"text": content.String(),
				})
			}

		case "user":
			geminiMsg := map[string]interface{}{"role": "user"}
			if content.IsArray() {
				var parts []interface{}
				for _, part := range content.Array() {
					parts = append(parts, convertContentPart(part))
				}
				geminiMsg["parts"] = parts
			} else {
				geminiMsg["parts"] = []interface{}{
					map[string]interface{}{"text": content.String()},
				}
			}
			contents = append(contents, geminiMsg)

		case "assistant":
			geminiMsg := map[string]interface{}{"role": "model"}
			var parts []interface{}

			if content.Exists() {
				if content.IsArray() {
					for _, part := range content.Array() {
						parts = append(parts, convertContentPart(part))
					}
				} else if content.String() != "" {
					parts = append(parts, map[string]interface{}{"text": content.String()})
				}
			}

			for _, tc := range msg.Get("tool_calls").Array() {
				if tc.Get("type").String() != "function" && tc.Get("type").Exists() {
					continue
				}
				var argsObj interface{}
				if err := json.Unmarshal([]byte(tc.Get("function.arguments").String()), &argsObj); err != nil {
					argsObj = map[string]interface{}{}
				}
				fnCall := map[string]interface{}{
					"name": tc.Get("function.name").String(),
					"args": argsObj,
				}
				if id := tc.Get("id").String(); id != "" {
					fnCall["id"] = id
				}
				parts = append(parts, map[string]interface{}{"functionCall": fnCall})
			}

			if len(parts) > 0 {
				geminiMsg["parts"] = parts
				contents = append(contents, geminiMsg)
			} else {
				// An empty assistant turn stands in as a single-space user
				// placeholder so the conversation keeps its turn.
				contents = append(contents, map[string]interface{}{
					"role":  "user",
					"parts": []interface{}{map[string]interface{}{"text": " "}},
				})
			}

		case "tool":
			toolCallID := msg.Get("tool_call_id").String()
			name := msg.Get("name").String()
			if name == "" {
				name = callNames[toolCallID]
			}

			var responseContent interface{}
			contentStr := content.String()
			if err := json.Unmarshal([]byte(contentStr), &responseContent); err != nil {
				responseContent = map[string]interface{}{"result": contentStr}
			}

			fnResp := map[string]interface{}{
				"name":     name,
				"response": responseContent,
			}
			if toolCallID != "" {
				fnResp["id"] = toolCallID
			}

			contents = append(contents, map[string]interface{}{
				"role":  "user",
				"parts": []interface{}{map[string]interface{}{"functionResponse": fnResp}},
			})
		}
	}

	return contents, systemInstructions
}

// convertContentPart converts one OpenAI content part to a Gemini part.
func convertContentPart(part gjson.Result) interface{} {
	switch part.Get("type").String() {
	case "text", "input_text", "output_text":
		return map[string]interface{}{"text": part.Get("text").String()}

	case "image_url":
		return imagePartFromURL(part.Get("image_url.url").String())

	case "input_image":
		url := part.Get("image_url").String()
		if url == "" {
			url = part.Get("url").String()
		}
		return imagePartFromURL(url)
	}

	var result interface{}
	if err := json.Unmarshal([]byte(part.Raw), &result); err == nil {
		return result
	}
	return map[string]interface{}{"text": part.Raw}
}

func imagePartFromURL(imageURL string) interface{} {
	if strings.HasPrefix(imageURL, "data:") {
		pieces := strings.SplitN(imageURL, ",", 2)
		if len(pieces) == 2 {
			return map[string]interface{}{
				"inlineData": map[string]interface{}{
					"mimeType": detectImageMIME(pieces[0]),
					"data":     pieces[1],
				},
			}
		}
	}
	return map[string]interface{}{
		"fileData": map[string]interface{}{"fileUri": imageURL},
	}
}

func detectImageMIME(prefix string) string {
	switch {
	case strings.Contains(prefix, "image/png"):
		return "image/png"
	case strings.Contains(prefix, "image/webp"):
		return "image/webp"
	case strings.Contains(prefix, "image/gif"):
		return "image/gif"
	case strings.Contains(prefix, "image/heic"):
		return "image/heic"
	case strings.Contains(prefix, "image/heif"):
		return "image/heif"
	default:
		return "image/jpeg"
	}
}

func mergeConsecutiveMessages(contents []interface{}) []interface{} {
	if len(contents) <= 1 {
		return contents
	}

	merged := make([]interface{}, 0, len(contents))
	var current map[string]interface{}

	flush := func() {
		if current != nil {
			merged = append(merged, current)
			current = nil
		}
	}

	for _, item := range contents {
		msg, ok := item.(map[string]interface{})
		if !ok {
			flush()
			merged = append(merged, item)
			continue
		}
		role, _ := msg["role"].(string)
		if current == nil || current["role"] != role {
			flush()
			current = msg
			continue
		}
		currentParts, _ := current["parts"].([]interface{})
		msgParts, _ := msg["parts"].([]interface{})
		current["parts"] = append(currentParts, msgParts...)
	}
	flush()

	return merged
}

// ensureNonEmptyContents guarantees the upstream never sees an empty
// contents array; an empty turn gets a single-space user placeholder.
func ensureNonEmptyContents(contents []interface{}) []interface{} {
	if len(contents) > 0 {
		return contents
	}
	return []interface{}{
		map[string]interface{}{
			"role":  "user",
			"parts": []interface{}{map[string]interface{}{"text": " "}},
		},
	}
}

func applyToolDeclarations(out string, rawJSON []byte) string {
	tools := gjson.GetBytes(rawJSON, "tools")
	if !tools.Exists() {
		return out
	}
	var declarations []interface{}
	for _, tool := range tools.Array() {
		if tool.Get("type").String() != "function" {
			continue
		}
		fn := tool.Get("function")
		decl := map[string]interface{}{
			"name":        fn.Get("name").String(),
			"description": fn.Get("description").String(),
		}
		if params := fn.Get("parameters"); params.Exists() {
			decl["parameters"] = json.RawMessage(CleanSchema([]byte(params.Raw)))
		}
		declarations = append(declarations, decl)
	}
	if len(declarations) == 0 {
		return out
	}
	toolsJSON, _ := json.Marshal([]interface{}{
		map[string]interface{}{"functionDeclarations": declarations},
	})
	out, _ = sjson.SetRaw(out, "tools", string(toolsJSON))
	return out
}

func applyResponseFormat(out string, rawJSON []byte) string {
	respFormat := gjson.GetBytes(rawJSON, "response_format")
	if !respFormat.Exists() {
		return out
	}
	switch respFormat.Get("type").String() {
	case "json_object":
		out, _ = sjson.Set(out, "generationConfig.responseMimeType", "application/json")
	case "json_schema":
		out, _ = sjson.Set(out, "generationConfig.responseMimeType", "application/json")
		if schema := respFormat.Get("json_schema.schema"); schema.Exists() {
			out, _ = sjson.SetRaw(out, "generationConfig.responseSchema", string(CleanSchema([]byte(schema.Raw))))
		}
	}
	return out
}
