package translator

import (
	"regexp"
	"sort"
	"testing"

	"github.com/tidwall/gjson"
)

func TestBuildEnvelopeShape(t *testing.T) {
	t.Parallel()

	inner := []byte(`{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)
	out := BuildEnvelope("projects/demo", "gemini-3-pro-preview", RequestTypeAgent, inner, "")

	parsed := gjson.ParseBytes(out)
	var keys []string
	parsed.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	sort.Strings(keys)
	want := []string{"model", "project", "request", "requestId", "requestType", "userAgent"}
	if len(keys) != len(want) {
		t.Fatalf("envelope keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("envelope keys = %v, want %v", keys, want)
		}
	}

	if got := parsed.Get("project").String(); got != "projects/demo" {
		t.Errorf("project = %q", got)
	}
	if got := parsed.Get("model").String(); got != "gemini-3-pro-preview" {
		t.Errorf("model = %q", got)
	}
	if got := parsed.Get("userAgent").String(); got != "antigravity" {
		t.Errorf("userAgent = %q", got)
	}
	if got := parsed.Get("requestType").String(); got != "agent" {
		t.Errorf("requestType = %q", got)
	}

	idPattern := regexp.MustCompile(`^agent-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if got := parsed.Get("requestId").String(); !idPattern.MatchString(got) {
		t.Errorf("requestId = %q, want agent-<uuid4>", got)
	}
}

func TestBuildEnvelopeFreshRequestID(t *testing.T) {
	t.Parallel()

	inner := []byte(`{"contents":[]}`)
	a := gjson.GetBytes(BuildEnvelope("p", "m", RequestTypeAgent, inner, ""), "requestId").String()
	b := gjson.GetBytes(BuildEnvelope("p", "m", RequestTypeAgent, inner, ""), "requestId").String()
	if a == b {
		t.Errorf("requestId reused across envelopes: %q", a)
	}
}

func TestBuildEnvelopeSafetySettings(t *testing.T) {
	t.Parallel()

	out := BuildEnvelope("p", "m", RequestTypeAgent, []byte(`{"contents":[]}`), "")
	settings := gjson.GetBytes(out, "request.safetySettings").Array()
	if len(settings) != 5 {
		t.Fatalf("safetySettings length = %d, want 5", len(settings))
	}
	seen := make(map[string]bool)
	for _, s := range settings {
		if got := s.Get("threshold").String(); got != "OFF" {
			t.Errorf("threshold = %q, want OFF", got)
		}
		seen[s.Get("category").String()] = true
	}
	if !seen["HARM_CATEGORY_CIVIC_INTEGRITY"] {
		t.Error("HARM_CATEGORY_CIVIC_INTEGRITY missing from safetySettings")
	}

	// A caller-supplied safetySettings array is left alone.
	out = BuildEnvelope("p", "m", RequestTypeAgent,
		[]byte(`{"contents":[],"safetySettings":[{"category":"HARM_CATEGORY_HARASSMENT","threshold":"BLOCK_NONE"}]}`), "")
	if n := len(gjson.GetBytes(out, "request.safetySettings").Array()); n != 1 {
		t.Errorf("caller safetySettings replaced, length = %d", n)
	}
}

func TestBuildEnvelopeSessionID(t *testing.T) {
	t.Parallel()

	out := BuildEnvelope("p", "m", RequestTypeAgent, []byte(`{"contents":[]}`), "sess-1")
	if got := gjson.GetBytes(out, "request.sessionId").String(); got != "sess-1" {
		t.Errorf("sessionId = %q, want sess-1", got)
	}

	out = BuildEnvelope("p", "m", RequestTypeAgent, []byte(`{"contents":[]}`), "")
	if gjson.GetBytes(out, "request.sessionId").Exists() {
		t.Error("sessionId present for empty session")
	}
}

func TestUnwrapResponse(t *testing.T) {
	t.Parallel()

	wrapped := []byte(`{"response":{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}}`)
	out := UnwrapResponse(wrapped)
	if !gjson.GetBytes(out, "candidates").Exists() {
		t.Errorf("wrapper not stripped: %s", out)
	}

	bare := []byte(`{"candidates":[]}`)
	if got := UnwrapResponse(bare); string(got) != string(bare) {
		t.Errorf("bare body rewritten: %s", got)
	}
}
