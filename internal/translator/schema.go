package translator

import (
	"encoding/json"
	"strings"
)

// Draft-07 keywords the upstream rejects in functionDeclarations parameters.
var forbiddenSchemaKeys = map[string]bool{
	"$schema":              true,
	"additionalProperties": true,
	"minLength":            true,
	"maxLength":            true,
	"exclusiveMinimum":     true,
	"exclusiveMaximum":     true,
	"format":               true,
	"default":              true,
	"pattern":              true,
	"examples":             true,
}

// CleanSchema normalises a JSON-Schema fragment into the shape the upstream
// accepts: forbidden keywords removed, type names uppercased, two-element
// nullable type unions collapsed to the non-null member. Total and
// idempotent; unparseable input is returned as-is.
func CleanSchema(raw []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	CleanSchemaValue(v)
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// CleanSchemaValue applies the sanitisation rules in place to a decoded
// JSON value, recursing through every object and array node.
func CleanSchemaValue(v interface{}) {
	switch node := v.(type) {
	case map[string]interface{}:
		for key := range node {
			if forbiddenSchemaKeys[key] {
				delete(node, key)
			}
		}
		if t, ok := node["type"]; ok {
			node["type"] = normalizeSchemaType(t)
		}
		for _, child := range node {
			CleanSchemaValue(child)
		}
	case []interface{}:
		for _, child := range node {
			CleanSchemaValue(child)
		}
	}
}

func normalizeSchemaType(t interface{}) interface{} {
	switch tv := t.(type) {
	case string:
		return strings.ToUpper(tv)
	case []interface{}:
		// ["string","null"] style nullable unions collapse to the non-null
		// member; anything else is left alone.
		if len(tv) == 2 {
			first, firstOK := tv[0].(string)
			second, secondOK := tv[1].(string)
			if firstOK && secondOK {
				if first == "null" && second != "null" {
					return strings.ToUpper(second)
				}
				if second == "null" && first != "null" {
					return strings.ToUpper(first)
				}
			}
		}
		return tv
	default:
		return t
	}
}
