package translator

import (
	"testing"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
)

func TestResolveRequestConfigAgent(t *testing.T) {
	t.Parallel()

	cfg := ResolveRequestConfig("gemini-3-pro-preview", "gemini-3-pro-preview")
	if cfg.RequestType != RequestTypeAgent {
		t.Errorf("request type = %q, want agent", cfg.RequestType)
	}
	if cfg.InjectGoogleSearch {
		t.Error("unexpected grounding for a plain model")
	}
	if cfg.FinalModel != "gemini-3-pro-preview" {
		t.Errorf("final model = %q", cfg.FinalModel)
	}
}

func TestResolveRequestConfigOnlineSuffix(t *testing.T) {
	t.Parallel()

	cfg := ResolveRequestConfig("gemini-3-pro-preview-online", "gemini-3-pro-preview-online")
	if cfg.RequestType != RequestTypeWebSearch {
		t.Errorf("request type = %q, want web_search", cfg.RequestType)
	}
	if !cfg.InjectGoogleSearch {
		t.Error("grounding not enabled for -online")
	}
	if cfg.FinalModel != "gemini-3-pro-preview" {
		t.Errorf("final model = %q, -online suffix not stripped", cfg.FinalModel)
	}
}

func TestResolveRequestConfigHighQualityAllowlist(t *testing.T) {
	t.Parallel()

	for _, model := range []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-1.5-pro", "gemini-1.5-pro-002"} {
		cfg := ResolveRequestConfig(model, model)
		if cfg.RequestType != RequestTypeWebSearch || !cfg.InjectGoogleSearch {
			t.Errorf("%s: type=%q grounding=%v, want web_search with grounding", model, cfg.RequestType, cfg.InjectGoogleSearch)
		}
	}

	// Close but not on the list.
	cfg := ResolveRequestConfig("gemini-2.5-pro", "gemini-2.5-pro")
	if cfg.RequestType != RequestTypeAgent {
		t.Errorf("gemini-2.5-pro: type=%q, want agent", cfg.RequestType)
	}
}

func TestResolveRequestConfigImageSuffixes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		model  string
		aspect string
		size   string
	}{
		{"gemini-3-pro-image", "1:1", ""},
		{"gemini-3-pro-image-16x9", "16:9", ""},
		{"gemini-3-pro-image-9x16", "9:16", ""},
		{"gemini-3-pro-image-4x3", "4:3", ""},
		{"gemini-3-pro-image-3x4", "3:4", ""},
		{"gemini-3-pro-image-16x9-4k", "16:9", "4K"},
		{"gemini-3-pro-image-hd", "1:1", "4K"},
	}
	for _, tc := range cases {
		cfg := ResolveRequestConfig(tc.model, tc.model)
		if cfg.RequestType != RequestTypeImageGen {
			t.Errorf("%s: type=%q, want image_gen", tc.model, cfg.RequestType)
			continue
		}
		if cfg.FinalModel != constants.ImageGenerationModel {
			t.Errorf("%s: final model = %q, want %q", tc.model, cfg.FinalModel, constants.ImageGenerationModel)
		}
		if got := cfg.ImageConfig["aspectRatio"]; got != tc.aspect {
			t.Errorf("%s: aspectRatio = %v, want %q", tc.model, got, tc.aspect)
		}
		size, _ := cfg.ImageConfig["imageSize"].(string)
		if size != tc.size {
			t.Errorf("%s: imageSize = %q, want %q", tc.model, size, tc.size)
		}
	}
}

func TestInjectGoogleSearch(t *testing.T) {
	t.Parallel()

	// No tools array yet.
	out := InjectGoogleSearch([]byte(`{"contents":[]}`))
	if n := len(gjson.GetBytes(out, "tools").Array()); n != 1 {
		t.Fatalf("tools length = %d, want 1", n)
	}

	// Existing tools keep their entries.
	out = InjectGoogleSearch([]byte(`{"tools":[{"functionDeclarations":[{"name":"f"}]}]}`))
	if n := len(gjson.GetBytes(out, "tools").Array()); n != 2 {
		t.Fatalf("tools length = %d, want 2", n)
	}

	// Idempotent once grounding is present.
	again := InjectGoogleSearch(out)
	if n := len(gjson.GetBytes(again, "tools").Array()); n != 2 {
		t.Errorf("tools length after re-injection = %d, want 2", n)
	}
}
