package translator

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestOpenAIChatToRequestBasic(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "system", "content": "Be terse."},
			{"role": "user", "content": "Hello"}
		],
		"temperature": 0.7,
		"max_tokens": 256
	}`)

	out := gjson.ParseBytes(OpenAIChatToRequest(raw))

	if got := out.Get("systemInstruction.parts.0.text").String(); got != "Be terse." {
		t.Errorf("systemInstruction = %q", got)
	}
	contents := out.Get("contents").Array()
	if len(contents) != 1 {
		t.Fatalf("contents length = %d, want 1", len(contents))
	}
	if got := contents[0].Get("role").String(); got != "user" {
		t.Errorf("role = %q", got)
	}
	if got := contents[0].Get("parts.0.text").String(); got != "Hello" {
		t.Errorf("text = %q", got)
	}
	if got := out.Get("generationConfig.temperature").Float(); got != 0.7 {
		t.Errorf("temperature = %v", got)
	}
	if got := out.Get("generationConfig.maxOutputTokens").Int(); got != 256 {
		t.Errorf("maxOutputTokens = %v", got)
	}
	if got := out.Get("generationConfig.candidateCount").Int(); got != 1 {
		t.Errorf("candidateCount = %v", got)
	}
}

func TestOpenAIChatToRequestMaxTokensCap(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"messages":[{"role":"user","content":"x"}],"max_tokens":1000000}`)
	out := OpenAIChatToRequest(raw)
	if got := gjson.GetBytes(out, "generationConfig.maxOutputTokens").Int(); got != 64000 {
		t.Errorf("maxOutputTokens = %d, want 64000", got)
	}
}

func TestOpenAIChatToRequestToolRoundTrip(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"messages": [
			{"role": "user", "content": "weather?"},
			{"role": "assistant", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "{\"temp\": 21}"}
		],
		"tools": [
			{"type": "function", "function": {"name": "get_weather", "description": "d", "parameters": {"type": "object", "additionalProperties": false}}}
		]
	}`)

	out := gjson.ParseBytes(OpenAIChatToRequest(raw))
	contents := out.Get("contents").Array()
	if len(contents) != 3 {
		t.Fatalf("contents length = %d, want 3: %s", len(contents), out.Raw)
	}

	call := contents[1].Get("parts.0.functionCall")
	if call.Get("name").String() != "get_weather" || call.Get("args.city").String() != "Paris" {
		t.Errorf("functionCall = %s", call.Raw)
	}
	if call.Get("id").String() != "call_1" {
		t.Errorf("functionCall id = %q", call.Get("id").String())
	}

	fnResp := contents[2].Get("parts.0.functionResponse")
	if fnResp.Get("name").String() != "get_weather" {
		t.Errorf("functionResponse name = %q (id mapping broken)", fnResp.Get("name").String())
	}
	if fnResp.Get("response.temp").Int() != 21 {
		t.Errorf("functionResponse = %s", fnResp.Raw)
	}

	decl := out.Get("tools.0.functionDeclarations.0")
	if decl.Get("name").String() != "get_weather" {
		t.Errorf("declaration = %s", decl.Raw)
	}
	if decl.Get("parameters.additionalProperties").Exists() {
		t.Error("declaration parameters not sanitised")
	}
	if decl.Get("parameters.type").String() != "OBJECT" {
		t.Errorf("declaration type = %q", decl.Get("parameters.type").String())
	}
}

func TestOpenAIChatToRequestMergesConsecutiveRoles(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"messages":[
		{"role":"user","content":"a"},
		{"role":"user","content":"b"},
		{"role":"assistant","content":"c"},
		{"role":"user","content":"d"}
	]}`)

	out := gjson.ParseBytes(OpenAIChatToRequest(raw))
	contents := out.Get("contents").Array()
	if len(contents) != 3 {
		t.Fatalf("contents length = %d, want 3", len(contents))
	}
	if n := len(contents[0].Get("parts").Array()); n != 2 {
		t.Errorf("merged parts = %d, want 2", n)
	}
}

func TestOpenAIChatToRequestEmptyAssistantPlaceholder(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":""},
		{"role":"assistant","content":"ok"}
	]}`)
	out := gjson.ParseBytes(OpenAIChatToRequest(raw))

	// The empty assistant turn becomes a single-space user placeholder,
	// which merges into the preceding user message.
	contents := out.Get("contents").Array()
	if len(contents) != 2 {
		t.Fatalf("contents length = %d, want 2", len(contents))
	}
	if got := contents[0].Get("role").String(); got != "user" {
		t.Errorf("first role = %q", got)
	}
	parts := contents[0].Get("parts").Array()
	if len(parts) != 2 {
		t.Fatalf("first message parts = %d, want 2", len(parts))
	}
	if got := parts[1].Get("text").String(); got != " " {
		t.Errorf("placeholder text = %q, want single space", got)
	}
	if got := contents[1].Get("role").String(); got != "model" {
		t.Errorf("second role = %q", got)
	}
}

func TestOpenAIChatToRequestEmptyMessages(t *testing.T) {
	t.Parallel()

	out := gjson.ParseBytes(OpenAIChatToRequest([]byte(`{"messages":[]}`)))
	contents := out.Get("contents").Array()
	if len(contents) != 1 {
		t.Fatalf("contents length = %d, want 1 placeholder", len(contents))
	}
	if got := contents[0].Get("parts.0.text").String(); got != " " {
		t.Errorf("placeholder text = %q", got)
	}
}

func TestOpenAIChatToRequestDataURLImage(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"messages":[{"role":"user","content":[
		{"type":"text","text":"what is this"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}
	]}]}`)

	out := gjson.ParseBytes(OpenAIChatToRequest(raw))
	inline := out.Get("contents.0.parts.1.inlineData")
	if inline.Get("mimeType").String() != "image/png" || inline.Get("data").String() != "AAAA" {
		t.Errorf("inlineData = %s", inline.Raw)
	}
}

func TestResponseToOpenAIChatEcho(t *testing.T) {
	t.Parallel()

	upstream := []byte(`{"response":{
		"candidates":[{
			"content":{"parts":[
				{"text":"thinking...","thought":true},
				{"text":"Hello there"}
			]},
			"finishReason":"STOP"
		}],
		"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":4,"thoughtsTokenCount":6}
	}}`)

	out := gjson.ParseBytes(ResponseToOpenAIChat(upstream, "gpt-4o"))
	if got := out.Get("object").String(); got != "chat.completion" {
		t.Errorf("object = %q", got)
	}
	if got := out.Get("model").String(); got != "gpt-4o" {
		t.Errorf("model = %q", got)
	}
	msg := out.Get("choices.0.message")
	if msg.Get("content").String() != "Hello there" {
		t.Errorf("content = %q", msg.Get("content").String())
	}
	if msg.Get("reasoning_content").String() != "thinking..." {
		t.Errorf("reasoning_content = %q", msg.Get("reasoning_content").String())
	}
	if got := out.Get("choices.0.finish_reason").String(); got != "stop" {
		t.Errorf("finish_reason = %q", got)
	}
	usage := out.Get("usage")
	if usage.Get("prompt_tokens").Int() != 10 || usage.Get("total_tokens").Int() != 20 {
		t.Errorf("usage = %s", usage.Raw)
	}
}

func TestResponseToOpenAIChatToolCall(t *testing.T) {
	t.Parallel()

	upstream := []byte(`{"response":{"candidates":[{
		"content":{"parts":[{"functionCall":{"name":"get_weather","args":{"city":"Paris"}}}]},
		"finishReason":"STOP"
	}]}}`)

	out := gjson.ParseBytes(ResponseToOpenAIChat(upstream, "m"))
	call := out.Get("choices.0.message.tool_calls.0")
	if call.Get("function.name").String() != "get_weather" {
		t.Errorf("tool call = %s", call.Raw)
	}
	if got := gjson.Parse(call.Get("function.arguments").String()).Get("city").String(); got != "Paris" {
		t.Errorf("arguments = %q", call.Get("function.arguments").String())
	}
	if got := out.Get("choices.0.finish_reason").String(); got != "tool_calls" {
		t.Errorf("finish_reason = %q, want tool_calls", got)
	}
}

func TestResponseToOpenAIChatEmptyCandidates(t *testing.T) {
	t.Parallel()

	out := ResponseToOpenAIChat([]byte(`{"response":{"usageMetadata":{"promptTokenCount":1}}}`), "gpt-4o")
	if !strings.Contains(string(out), `"choices":[]`) {
		t.Errorf("choices should marshal as an empty array: %s", out)
	}
}

func TestMapFinishReason(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"STOP":       "stop",
		"MAX_TOKENS": "length",
		"SAFETY":     "content_filter",
		"RECITATION": "content_filter",
		"":           "stop",
	}
	for in, want := range cases {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
