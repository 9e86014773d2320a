package translator

import (
	"encoding/json"
	"strings"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ClaudeRequest is the result of translating an Anthropic Messages body:
// the inner Gemini request plus the routing decision, which may differ
// from the router's answer when a web_search tool forces the flash model.
type ClaudeRequest struct {
	Body      []byte
	Config    RequestConfig
	SessionID string
}

// ClaudeToRequest translates an Anthropic Messages body. originalModel is
// the client-facing name, mappedModel the router's resolution.
func ClaudeToRequest(rawJSON []byte, originalModel, mappedModel string) ClaudeRequest {
	hasWebSearchTool := false
	for _, tool := range gjson.GetBytes(rawJSON, "tools").Array() {
		if tool.Get("name").String() == "web_search" {
			hasWebSearchTool = true
			break
		}
	}
	if hasWebSearchTool {
		mappedModel = constants.WebSearchModel
	}

	cfg := ResolveRequestConfig(originalModel, mappedModel)

	thinkingEnabled := gjson.GetBytes(rawJSON, "thinking.type").String() == "enabled"

	toolIDToName := make(map[string]string)
	contents := buildClaudeContents(rawJSON, toolIDToName, thinkingEnabled)

	out := `{}`
	contentsJSON, _ := json.Marshal(contents)
	out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))

	if sys := buildClaudeSystemInstruction(rawJSON); sys != nil {
		sysJSON, _ := json.Marshal(sys)
		out, _ = sjson.SetRaw(out, "systemInstruction", string(sysJSON))
	}

	genConfig := buildClaudeGenerationConfig(rawJSON, hasWebSearchTool, mappedModel)
	genJSON, _ := json.Marshal(genConfig)
	out, _ = sjson.SetRaw(out, "generationConfig", string(genJSON))

	if tools := buildClaudeTools(rawJSON, hasWebSearchTool); tools != nil {
		toolsJSON, _ := json.Marshal(tools)
		out, _ = sjson.SetRaw(out, "tools", string(toolsJSON))
	}

	body := []byte(out)
	if cfg.InjectGoogleSearch && !hasWebSearchTool {
		body = InjectGoogleSearch(body)
	}
	if cfg.RequestType == RequestTypeImageGen {
		body = stripForImageGeneration(body, cfg.ImageConfig)
	}

	return ClaudeRequest{
		Body:      body,
		Config:    cfg,
		SessionID: gjson.GetBytes(rawJSON, "metadata.user_id").String(),
	}
}

func buildClaudeSystemInstruction(rawJSON []byte) map[string]interface{} {
	system := gjson.GetBytes(rawJSON, "system")
	if !system.Exists() {
		return nil
	}

	var parts []interface{}
	if system.IsArray() {
		for _, block := range system.Array() {
			if block.Get("type").String() == "text" {
				parts = append(parts, map[string]interface{}{"text": block.Get("text").String()})
			}
		}
	} else if system.String() != "" {
		parts = append(parts, map[string]interface{}{"text": system.String()})
	}

	if len(parts) == 0 {
		return nil
	}
	return map[string]interface{}{"role": "user", "parts": parts}
}

func buildClaudeContents(rawJSON []byte, toolIDToName map[string]string, thinkingEnabled bool) []interface{} {
	messages := gjson.GetBytes(rawJSON, "messages").Array()
	contents := make([]interface{}, 0, len(messages))

	for i, msg := range messages {
		role := msg.Get("role").String()
		if role == "assistant" {
			role = "model"
		}

		var parts []interface{}
		content := msg.Get("content")
		if content.Type == gjson.String {
			// Some clients pad empty turns with a "(no content)" marker.
			if text := strings.TrimSpace(content.String()); text != "" && text != "(no content)" {
				parts = append(parts, map[string]interface{}{"text": text})
			}
		} else {
			for _, block := range content.Array() {
				if part := claudeBlockToPart(block, toolIDToName); part != nil {
					parts = append(parts, part)
				}
			}
		}

		// The upstream requires thinking-enabled assistant turns to open
		// with a thought part. Only the LAST assistant message (pre-fill)
		// gets a synthetic one; historical turns must stay untouched
		// because they lack signatures.
		if role == "model" && thinkingEnabled && i == len(messages)-1 {
			hasThought := false
			for _, p := range parts {
				if pm, ok := p.(map[string]interface{}); ok {
					if t, ok := pm["thought"].(bool); ok && t {
						hasThought = true
						break
					}
				}
			}
			if !hasThought {
				parts = append([]interface{}{
					map[string]interface{}{"text": "Thinking...", "thought": true},
				}, parts...)
			}
		}

		if len(parts) == 0 {
			continue
		}
		contents = append(contents, map[string]interface{}{"role": role, "parts": parts})
	}

	if len(contents) == 0 {
		contents = ensureNonEmptyContents(contents)
	}
	return contents
}

func claudeBlockToPart(block gjson.Result, toolIDToName map[string]string) interface{} {
	switch block.Get("type").String() {
	case "text":
		text := block.Get("text").String()
		if text == "(no content)" {
			return nil
		}
		return map[string]interface{}{"text": text}

	case "thinking":
		part := map[string]interface{}{
			"text":    block.Get("thinking").String(),
			"thought": true,
		}
		if sig := block.Get("signature"); sig.Exists() {
			part["thoughtSignature"] = sig.String()
		}
		return part

	case "image":
		if block.Get("source.type").String() != "base64" {
			return nil
		}
		return map[string]interface{}{
			"inlineData": map[string]interface{}{
				"mimeType": block.Get("source.media_type").String(),
				"data":     block.Get("source.data").String(),
			},
		}

	case "tool_use":
		id := block.Get("id").String()
		name := block.Get("name").String()
		toolIDToName[id] = name

		var args interface{}
		if input := block.Get("input"); input.Exists() {
			_ = json.Unmarshal([]byte(input.Raw), &args)
		}
		if args == nil {
			args = map[string]interface{}{}
		}
		part := map[string]interface{}{
			"functionCall": map[string]interface{}{
				"name": name,
				"args": args,
				"id":   id,
			},
		}
		if sig := block.Get("signature"); sig.Exists() {
			part["thoughtSignature"] = sig.String()
		}
		return part

	case "tool_result":
		toolUseID := block.Get("tool_use_id").String()
		name, ok := toolIDToName[toolUseID]
		if !ok {
			name = toolUseID
		}

		var result interface{}
		if content := block.Get("content"); content.Exists() {
			_ = json.Unmarshal([]byte(content.Raw), &result)
		}
		return map[string]interface{}{
			"functionResponse": map[string]interface{}{
				"name":     name,
				"response": map[string]interface{}{"result": result},
				"id":       toolUseID,
			},
		}
	}
	return nil
}

func buildClaudeTools(rawJSON []byte, hasWebSearch bool) []interface{} {
	tools := gjson.GetBytes(rawJSON, "tools")
	if !tools.Exists() {
		return nil
	}

	if hasWebSearch {
		return []interface{}{
			map[string]interface{}{
				"googleSearch": map[string]interface{}{
					"enhancedContent": map[string]interface{}{
						"imageSearch": map[string]interface{}{"maxResultCount": 5},
					},
				},
			},
		}
	}

	var declarations []interface{}
	for _, tool := range tools.Array() {
		decl := map[string]interface{}{
			"name":        tool.Get("name").String(),
			"description": tool.Get("description").String(),
		}
		if schema := tool.Get("input_schema"); schema.Exists() {
			decl["parameters"] = json.RawMessage(CleanSchema([]byte(schema.Raw)))
		}
		declarations = append(declarations, decl)
	}
	if len(declarations) == 0 {
		return nil
	}
	return []interface{}{
		map[string]interface{}{"functionDeclarations": declarations},
	}
}

func buildClaudeGenerationConfig(rawJSON []byte, hasWebSearch bool, mappedModel string) map[string]interface{} {
	config := map[string]interface{}{}

	if gjson.GetBytes(rawJSON, "thinking.type").String() == "enabled" {
		thinkingConfig := map[string]interface{}{"includeThoughts": true}
		if budget := gjson.GetBytes(rawJSON, "thinking.budget_tokens"); budget.Exists() {
			budgetValue := int(budget.Int())
			isFlash := hasWebSearch || strings.Contains(mappedModel, "gemini-2.5-flash")
			if isFlash && budgetValue > constants.FlashThinkingBudgetCap {
				budgetValue = constants.FlashThinkingBudgetCap
			}
			thinkingConfig["thinkingBudget"] = budgetValue
		}
		config["thinkingConfig"] = thinkingConfig
	}

	if temp := gjson.GetBytes(rawJSON, "temperature"); temp.Exists() {
		config["temperature"] = temp.Value()
	}
	if topP := gjson.GetBytes(rawJSON, "top_p"); topP.Exists() {
		config["topP"] = topP.Value()
	}
	if topK := gjson.GetBytes(rawJSON, "top_k"); topK.Exists() {
		config["topK"] = int(topK.Int())
	}

	if stop := gjson.GetBytes(rawJSON, "stop_sequences"); stop.Exists() {
		if stopSeqs := collectStopSequences(stop); len(stopSeqs) > 0 {
			config["stopSequences"] = stopSeqs
		}
	}

	maxTokens := constants.DefaultMaxOutputTokens
	if mt := gjson.GetBytes(rawJSON, "max_tokens"); mt.Exists() && mt.Int() > 0 {
		maxTokens = int(mt.Int())
		if maxTokens > constants.MaxOutputTokensCap {
			maxTokens = constants.MaxOutputTokensCap
		}
	}
	config["maxOutputTokens"] = maxTokens

	return config
}

// stripForImageGeneration pares the request down to what the image model
// accepts: no tools, no system prompt, no thinking, plus the imageConfig.
func stripForImageGeneration(body []byte, imageConfig map[string]interface{}) []byte {
	body, _ = sjson.DeleteBytes(body, "tools")
	body, _ = sjson.DeleteBytes(body, "systemInstruction")
	body, _ = sjson.DeleteBytes(body, "generationConfig.thinkingConfig")
	body, _ = sjson.DeleteBytes(body, "generationConfig.responseMimeType")
	body, _ = sjson.DeleteBytes(body, "generationConfig.responseModalities")
	if imageConfig != nil {
		cfgJSON, _ := json.Marshal(imageConfig)
		body, _ = sjson.SetRawBytes(body, "generationConfig.imageConfig", cfgJSON)
	}
	return body
}
