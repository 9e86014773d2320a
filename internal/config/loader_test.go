package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8045 {
		t.Errorf("port = %d, want 8045", cfg.Server.Port)
	}
	if cfg.Mapping.OpenAI["gpt-4o"] == "" {
		t.Error("default openai mapping missing")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9000
security:
  api_key: sk-test
mapping:
  custom:
    fast: gemini-2.5-flash
quota:
  per_type:
    image_gen: 20
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Security.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.Security.APIKey)
	}
	if cfg.Mapping.Custom["fast"] != "gemini-2.5-flash" {
		t.Errorf("custom mapping = %v", cfg.Mapping.Custom)
	}
	if cfg.Quota.PerType["image_gen"] != 20 {
		t.Errorf("quota = %v", cfg.Quota.PerType)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROXY_PORT", "7001")
	t.Setenv("PROXY_API_KEY", "sk-env")
	t.Setenv("PROXY_UPSTREAM_PROXY", "socks5://127.0.0.1:1080")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Security.APIKey != "sk-env" {
		t.Errorf("api key = %q", cfg.Security.APIKey)
	}
	if !cfg.Upstream.Proxy.Enabled || cfg.Upstream.Proxy.URL != "socks5://127.0.0.1:1080" {
		t.Errorf("proxy = %+v", cfg.Upstream.Proxy)
	}
}

func TestManagerQuotaCeiling(t *testing.T) {
	cfg := Default()
	cfg.Quota.PerType = map[string]int{"image_gen": 5}
	m := NewStaticManager(cfg)

	if got := m.QuotaCeiling("image_gen"); got != 5 {
		t.Errorf("image_gen ceiling = %d", got)
	}
	if got := m.QuotaCeiling("agent"); got != 0 {
		t.Errorf("agent ceiling = %d, want 0 (untracked)", got)
	}
}

func TestManagerMappings(t *testing.T) {
	cfg := Default()
	cfg.Mapping.Custom = map[string]string{"fast": "gemini-2.5-flash"}
	m := NewStaticManager(cfg)

	custom, openai, anthropic := m.Mappings()
	if custom["fast"] != "gemini-2.5-flash" {
		t.Errorf("custom = %v", custom)
	}
	if openai["gpt-4o"] == "" {
		t.Errorf("openai = %v", openai)
	}
	if anthropic["claude-3-5-sonnet"] == "" {
		t.Errorf("anthropic = %v", anthropic)
	}
}
