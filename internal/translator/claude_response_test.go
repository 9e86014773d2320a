package translator

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestResponseToClaudeBlocks(t *testing.T) {
	t.Parallel()

	upstream := []byte(`{"response":{"candidates":[{"content":{"parts":[
		{"thought":true,"text":"pondering","thoughtSignature":"sig-1"},
		{"text":"the answer"},
		{"functionCall":{"name":"get_weather","args":{"city":"SF"}}}
	]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":9}}}`)

	out := gjson.ParseBytes(ResponseToClaude(upstream, "claude-3-5-sonnet"))

	blocks := out.Get("content").Array()
	if len(blocks) != 3 {
		t.Fatalf("content blocks = %d, want 3", len(blocks))
	}
	if got := blocks[0].Get("type").String(); got != "thinking" {
		t.Errorf("block 0 type = %q", got)
	}
	if got := blocks[0].Get("signature").String(); got != "sig-1" {
		t.Errorf("signature = %q", got)
	}
	if got := blocks[1].Get("text").String(); got != "the answer" {
		t.Errorf("text = %q", got)
	}
	if got := blocks[2].Get("name").String(); got != "get_weather" {
		t.Errorf("tool name = %q", got)
	}
	if got := out.Get("stop_reason").String(); got != "tool_use" {
		t.Errorf("stop_reason = %q", got)
	}
	if got := out.Get("usage.output_tokens").Int(); got != 9 {
		t.Errorf("output_tokens = %d", got)
	}
}

func TestResponseToClaudeEmptyParts(t *testing.T) {
	t.Parallel()

	out := ResponseToClaude([]byte(`{"response":{"candidates":[{"finishReason":"STOP"}]}}`), "m")
	if !strings.Contains(string(out), `"content":[]`) {
		t.Errorf("content should marshal as an empty array: %s", out)
	}
	if got := gjson.GetBytes(out, "stop_reason").String(); got != "end_turn" {
		t.Errorf("stop_reason = %q", got)
	}
}
