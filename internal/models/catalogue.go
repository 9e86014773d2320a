package models

// Base model names exposed through the listing endpoints. Suffixed variants
// (aspect ratios, -online grounding) are accepted on request paths without
// appearing here.
var baseModels = []string{
	"gemini-3-pro-preview",
	"gemini-3-pro-image",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-1.5-pro",
}

// OpenAIModel is one entry of the OpenAI /v1/models listing.
type OpenAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// OpenAIModelList returns the catalogue in OpenAI list shape.
func OpenAIModelList(created int64) []OpenAIModel {
	out := make([]OpenAIModel, 0, len(baseModels))
	for _, id := range baseModels {
		out = append(out, OpenAIModel{ID: id, Object: "model", Created: created, OwnedBy: "google"})
	}
	return out
}

// ClaudeModel is one entry of the Anthropic /v1/models listing.
type ClaudeModel struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// ClaudeModelList returns the catalogue in Anthropic list shape.
func ClaudeModelList() []ClaudeModel {
	out := make([]ClaudeModel, 0, len(baseModels))
	for _, id := range baseModels {
		out = append(out, ClaudeModel{ID: id, Type: "model", DisplayName: id})
	}
	return out
}

// GeminiModel is one entry of the Gemini /v1beta/models listing.
type GeminiModel struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// GeminiModelList returns the catalogue in Gemini list shape.
func GeminiModelList() []GeminiModel {
	out := make([]GeminiModel, 0, len(baseModels))
	for _, id := range baseModels {
		out = append(out, GeminiModel{
			Name:                       "models/" + id,
			DisplayName:                id,
			SupportedGenerationMethods: []string{"generateContent", "streamGenerateContent"},
		})
	}
	return out
}

// Known reports whether the id (before variant suffix parsing) is a
// catalogue base model.
func Known(id string) bool {
	for _, m := range baseModels {
		if m == id {
			return true
		}
	}
	return false
}
