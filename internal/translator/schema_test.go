package translator

import (
	"bytes"
	"testing"

	"github.com/tidwall/gjson"
)

func TestCleanSchemaRemovesForbiddenKeys(t *testing.T) {
	t.Parallel()

	in := []byte(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 64, "pattern": "^[a-z]+$"},
			"count": {"type": "integer", "exclusiveMinimum": 0, "default": 1, "format": "int32"}
		}
	}`)

	out := CleanSchema(in)
	for _, key := range []string{"$schema", "additionalProperties", "minLength", "maxLength", "pattern", "exclusiveMinimum", "default", "format"} {
		if bytes.Contains(out, []byte(`"`+key+`"`)) {
			t.Errorf("forbidden key %q survived: %s", key, out)
		}
	}
	if got := gjson.GetBytes(out, "type").String(); got != "OBJECT" {
		t.Errorf("type = %q, want OBJECT", got)
	}
	if got := gjson.GetBytes(out, "properties.name.type").String(); got != "STRING" {
		t.Errorf("nested type = %q, want STRING", got)
	}
}

func TestCleanSchemaNullableUnion(t *testing.T) {
	t.Parallel()

	out := CleanSchema([]byte(`{"type":["string","null"]}`))
	if got := gjson.GetBytes(out, "type").String(); got != "STRING" {
		t.Errorf("nullable union = %q, want STRING", got)
	}

	out = CleanSchema([]byte(`{"type":["null","integer"]}`))
	if got := gjson.GetBytes(out, "type").String(); got != "INTEGER" {
		t.Errorf("reversed union = %q, want INTEGER", got)
	}

	// Three-element unions are left alone.
	out = CleanSchema([]byte(`{"type":["string","integer","null"]}`))
	if got := gjson.GetBytes(out, "type"); !got.IsArray() || len(got.Array()) != 3 {
		t.Errorf("three-element union rewritten: %s", out)
	}
}

func TestCleanSchemaIdempotent(t *testing.T) {
	t.Parallel()

	in := []byte(`{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"tags": {"type": "array", "items": {"type": ["string", "null"]}}
		},
		"required": ["tags"]
	}`)

	once := CleanSchema(in)
	twice := CleanSchema(once)

	// Key order inside objects is not stable across marshals, so compare
	// semantically.
	if gjson.ParseBytes(once).String() != gjson.ParseBytes(twice).String() {
		t.Errorf("not idempotent:\n once: %s\ntwice: %s", once, twice)
	}
	if got := gjson.GetBytes(twice, "properties.tags.items.type").String(); got != "STRING" {
		t.Errorf("items type = %q, want STRING", got)
	}
}

func TestCleanSchemaUnparseableInputPassesThrough(t *testing.T) {
	t.Parallel()

	in := []byte(`{not json`)
	if out := CleanSchema(in); !bytes.Equal(out, in) {
		t.Errorf("unparseable input rewritten: %s", out)
	}
}
