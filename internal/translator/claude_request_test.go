package translator

import (
	"testing"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
)

func TestClaudeToRequestBasic(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"model": "claude-3-5-sonnet",
		"max_tokens": 1024,
		"system": "Be helpful.",
		"messages": [{"role": "user", "content": "hi"}],
		"metadata": {"user_id": "user-42"}
	}`)

	translated := ClaudeToRequest(raw, "claude-3-5-sonnet", "gemini-3-pro-preview")
	body := gjson.ParseBytes(translated.Body)

	if translated.Config.RequestType != RequestTypeAgent {
		t.Errorf("request type = %q", translated.Config.RequestType)
	}
	if translated.Config.FinalModel != "gemini-3-pro-preview" {
		t.Errorf("final model = %q", translated.Config.FinalModel)
	}
	if translated.SessionID != "user-42" {
		t.Errorf("session id = %q", translated.SessionID)
	}
	if got := body.Get("systemInstruction.parts.0.text").String(); got != "Be helpful." {
		t.Errorf("system = %q", got)
	}
	if got := body.Get("contents.0.parts.0.text").String(); got != "hi" {
		t.Errorf("text = %q", got)
	}
	if got := body.Get("generationConfig.maxOutputTokens").Int(); got != 1024 {
		t.Errorf("maxOutputTokens = %d", got)
	}
}

func TestClaudeToRequestDefaultMaxTokens(t *testing.T) {
	t.Parallel()

	translated := ClaudeToRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), "m", "m")
	if got := gjson.GetBytes(translated.Body, "generationConfig.maxOutputTokens").Int(); got != 64000 {
		t.Errorf("default maxOutputTokens = %d, want 64000", got)
	}
}

func TestClaudeToRequestToolBlocks(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"messages": [
			{"role": "user", "content": "weather?"},
			{"role": "assistant", "content": [
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "Paris"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "sunny"}
			]}
		],
		"tools": [
			{"name": "get_weather", "description": "d", "input_schema": {"type": "object", "additionalProperties": false}}
		]
	}`)

	translated := ClaudeToRequest(raw, "m", "gemini-3-pro-preview")
	body := gjson.ParseBytes(translated.Body)

	call := body.Get("contents.1.parts.0.functionCall")
	if call.Get("name").String() != "get_weather" || call.Get("id").String() != "toolu_1" {
		t.Errorf("functionCall = %s", call.Raw)
	}
	if call.Get("args.city").String() != "Paris" {
		t.Errorf("args = %s", call.Get("args").Raw)
	}

	fnResp := body.Get("contents.2.parts.0.functionResponse")
	if fnResp.Get("name").String() != "get_weather" {
		t.Errorf("functionResponse name = %q (tool id mapping broken)", fnResp.Get("name").String())
	}
	if fnResp.Get("response.result").String() != "sunny" {
		t.Errorf("functionResponse = %s", fnResp.Raw)
	}

	decl := body.Get("tools.0.functionDeclarations.0")
	if decl.Get("parameters.additionalProperties").Exists() {
		t.Error("input_schema not sanitised")
	}
}

func TestClaudeToRequestWebSearchTool(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"messages": [{"role": "user", "content": "latest news"}],
		"tools": [{"name": "web_search", "type": "web_search_20250305"}]
	}`)

	translated := ClaudeToRequest(raw, "claude-3-5-sonnet", "gemini-3-pro-preview")
	if translated.Config.RequestType != RequestTypeWebSearch {
		t.Errorf("request type = %q, want web_search", translated.Config.RequestType)
	}
	if translated.Config.FinalModel != constants.WebSearchModel {
		t.Errorf("final model = %q, want %q", translated.Config.FinalModel, constants.WebSearchModel)
	}

	tools := gjson.GetBytes(translated.Body, "tools").Array()
	if len(tools) != 1 || !tools[0].Get("googleSearch").Exists() {
		t.Errorf("tools = %s", gjson.GetBytes(translated.Body, "tools").Raw)
	}
}

func TestClaudeToRequestThinkingPrefill(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"thinking": {"type": "enabled", "budget_tokens": 2048},
		"messages": [
			{"role": "user", "content": "q1"},
			{"role": "assistant", "content": [{"type": "text", "text": "a1"}]},
			{"role": "user", "content": "q2"},
			{"role": "assistant", "content": [{"type": "text", "text": "prefill"}]}
		]
	}`)

	translated := ClaudeToRequest(raw, "m", "gemini-3-pro-preview")
	body := gjson.ParseBytes(translated.Body)

	// Only the trailing assistant turn gets the synthetic thought part.
	historical := body.Get("contents.1.parts")
	if historical.Array()[0].Get("thought").Bool() {
		t.Errorf("historical turn rewritten: %s", historical.Raw)
	}
	last := body.Get("contents.3.parts")
	if !last.Array()[0].Get("thought").Bool() {
		t.Errorf("prefill turn missing thought part: %s", last.Raw)
	}

	cfg := body.Get("generationConfig.thinkingConfig")
	if !cfg.Get("includeThoughts").Bool() || cfg.Get("thinkingBudget").Int() != 2048 {
		t.Errorf("thinkingConfig = %s", cfg.Raw)
	}
}

func TestClaudeToRequestFlashThinkingBudgetCap(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"thinking": {"type": "enabled", "budget_tokens": 60000},
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	translated := ClaudeToRequest(raw, "m", "gemini-2.5-flash")
	got := gjson.GetBytes(translated.Body, "generationConfig.thinkingConfig.thinkingBudget").Int()
	if got != int64(constants.FlashThinkingBudgetCap) {
		t.Errorf("thinkingBudget = %d, want cap %d", got, constants.FlashThinkingBudgetCap)
	}
}

func TestClaudeToRequestSkipsNoContentMarkers(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"messages":[
		{"role": "user", "content": "hi"},
		{"role": "assistant", "content": "(no content)"}
	]}`)

	translated := ClaudeToRequest(raw, "m", "m")
	contents := gjson.GetBytes(translated.Body, "contents").Array()
	if len(contents) != 1 {
		t.Errorf("contents length = %d, want 1 (empty marker dropped)", len(contents))
	}
}

func TestClaudeToRequestImageModelStripsTools(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"system": "be artistic",
		"messages": [{"role": "user", "content": "a cat"}],
		"tools": [{"name": "get_weather", "input_schema": {"type": "object"}}]
	}`)

	translated := ClaudeToRequest(raw, "gemini-3-pro-image-16x9", "gemini-3-pro-image-16x9")
	if translated.Config.RequestType != RequestTypeImageGen {
		t.Fatalf("request type = %q", translated.Config.RequestType)
	}
	body := gjson.ParseBytes(translated.Body)
	if body.Get("tools").Exists() || body.Get("systemInstruction").Exists() {
		t.Errorf("image request kept tools/system: %s", body.Raw)
	}
	if got := body.Get("generationConfig.imageConfig.aspectRatio").String(); got != "16:9" {
		t.Errorf("aspectRatio = %q", got)
	}
}
