package common

import (
	"fmt"
	"hash/fnv"

	"github.com/tidwall/gjson"
)

// Session ids feed the pool's sticky table. Clients that send an explicit
// user id get exact affinity; everything else is fingerprinted from the
// opening of the conversation, which is stable across turns of one chat.

// OpenAISessionID derives a sticky key from an OpenAI-shaped request.
func OpenAISessionID(raw []byte) string {
	if user := gjson.GetBytes(raw, "user").String(); user != "" {
		return user
	}
	first := gjson.GetBytes(raw, "messages.0.content").Raw
	system := gjson.GetBytes(raw, "messages.#(role==\"system\").content").Raw
	return fingerprint(system, first)
}

// ClaudeSessionID derives a sticky key from an Anthropic Messages request.
func ClaudeSessionID(raw []byte) string {
	if uid := gjson.GetBytes(raw, "metadata.user_id").String(); uid != "" {
		return uid
	}
	system := gjson.GetBytes(raw, "system").Raw
	first := gjson.GetBytes(raw, "messages.0.content").Raw
	return fingerprint(system, first)
}

func fingerprint(parts ...string) string {
	h := fnv.New64a()
	empty := true
	for _, p := range parts {
		if p != "" {
			empty = false
		}
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	if empty {
		return ""
	}
	return fmt.Sprintf("fp-%016x", h.Sum64())
}
