package common

import "testing"

func TestOpenAISessionID(t *testing.T) {
	t.Parallel()

	// Explicit user id wins.
	if got := OpenAISessionID([]byte(`{"user":"u-1","messages":[{"role":"user","content":"hi"}]}`)); got != "u-1" {
		t.Errorf("session = %q, want u-1", got)
	}

	// Fingerprint is stable across turns of one conversation.
	turn1 := []byte(`{"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`)
	turn2 := []byte(`{"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"},{"role":"assistant","content":"hello"},{"role":"user","content":"more"}]}`)
	a, b := OpenAISessionID(turn1), OpenAISessionID(turn2)
	if a == "" || a != b {
		t.Errorf("fingerprints differ across turns: %q vs %q", a, b)
	}

	// Different conversations get different keys.
	other := OpenAISessionID([]byte(`{"messages":[{"role":"user","content":"something else"}]}`))
	if other == a {
		t.Errorf("distinct conversations collided on %q", a)
	}

	if got := OpenAISessionID([]byte(`{}`)); got != "" {
		t.Errorf("empty body session = %q, want empty", got)
	}
}

func TestClaudeSessionID(t *testing.T) {
	t.Parallel()

	if got := ClaudeSessionID([]byte(`{"metadata":{"user_id":"u-2"},"messages":[]}`)); got != "u-2" {
		t.Errorf("session = %q, want u-2", got)
	}

	turn1 := []byte(`{"system":"be brief","messages":[{"role":"user","content":"hi"}]}`)
	turn2 := []byte(`{"system":"be brief","messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	a, b := ClaudeSessionID(turn1), ClaudeSessionID(turn2)
	if a == "" || a != b {
		t.Errorf("fingerprints differ across turns: %q vs %q", a, b)
	}

	if got := ClaudeSessionID([]byte(`{}`)); got != "" {
		t.Errorf("empty body session = %q, want empty", got)
	}
}
