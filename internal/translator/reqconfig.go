package translator

import (
	"strings"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Request types understood by the upstream quota accounting.
const (
	RequestTypeAgent     = "agent"
	RequestTypeWebSearch = "web_search"
	RequestTypeImageGen  = "image_gen"
)

// RequestConfig is the per-request routing decision: quota classification,
// grounding, and the model name actually sent upstream. Immutable for the
// duration of one retry chain.
type RequestConfig struct {
	RequestType        string
	InjectGoogleSearch bool
	FinalModel         string
	// ImageConfig is set only for image_gen requests.
	ImageConfig map[string]interface{}
}

// ResolveRequestConfig classifies a request from the client-facing and
// mapped model names. Grounding is forced for the -online suffix and for
// the high-quality allowlist (2.5-flash and 1.5-pro families) — the latter
// is a product decision, not an upstream requirement.
func ResolveRequestConfig(originalModel, mappedModel string) RequestConfig {
	// Image generation takes priority; every alias collapses onto the one
	// upstream image model.
	if strings.HasPrefix(mappedModel, constants.ImageGenerationModel) {
		return RequestConfig{
			RequestType: RequestTypeImageGen,
			FinalModel:  constants.ImageGenerationModel,
			ImageConfig: parseImageConfig(originalModel),
		}
	}

	finalModel := strings.TrimSuffix(mappedModel, "-online")

	isOnlineSuffix := strings.HasSuffix(originalModel, "-online")
	isHighQuality := mappedModel == "gemini-2.5-flash" ||
		mappedModel == "gemini-1.5-pro" ||
		strings.HasPrefix(mappedModel, "gemini-2.5-flash-") ||
		strings.HasPrefix(mappedModel, "gemini-1.5-pro-")

	if isOnlineSuffix || isHighQuality {
		return RequestConfig{
			RequestType:        RequestTypeWebSearch,
			InjectGoogleSearch: true,
			FinalModel:         finalModel,
		}
	}

	return RequestConfig{
		RequestType: RequestTypeAgent,
		FinalModel:  finalModel,
	}
}

// parseImageConfig reads aspect/quality suffix tokens off the client-facing
// model name, e.g. gemini-3-pro-image-16x9-4k.
func parseImageConfig(modelName string) map[string]interface{} {
	aspectRatio := "1:1"
	switch {
	case strings.Contains(modelName, "-16x9"):
		aspectRatio = "16:9"
	case strings.Contains(modelName, "-9x16"):
		aspectRatio = "9:16"
	case strings.Contains(modelName, "-4x3"):
		aspectRatio = "4:3"
	case strings.Contains(modelName, "-3x4"):
		aspectRatio = "3:4"
	}

	config := map[string]interface{}{"aspectRatio": aspectRatio}
	if strings.Contains(modelName, "-4k") || strings.Contains(modelName, "-hd") {
		config["imageSize"] = "4K"
	}
	return config
}

// ApplyRequestConfig rewrites a translated body according to the routing
// decision: grounding injection for web_search, cleanup plus imageConfig
// for image_gen.
func ApplyRequestConfig(body []byte, cfg RequestConfig) []byte {
	if cfg.InjectGoogleSearch {
		body = InjectGoogleSearch(body)
	}
	if cfg.RequestType == RequestTypeImageGen {
		body = stripForImageGeneration(body, cfg.ImageConfig)
	}
	return body
}

// InjectGoogleSearch adds a {"googleSearch":{}} entry to the request body's
// tools array unless one is already present.
func InjectGoogleSearch(body []byte) []byte {
	tools := gjson.GetBytes(body, "tools")
	if tools.Exists() {
		for _, tool := range tools.Array() {
			if tool.Get("googleSearch").Exists() {
				return body
			}
		}
		out, _ := sjson.SetRawBytes(body, "tools.-1", []byte(`{"googleSearch":{}}`))
		return out
	}
	out, _ := sjson.SetRawBytes(body, "tools", []byte(`[{"googleSearch":{}}]`))
	return out
}
