package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, layering it over Default and applying
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	if err := expandPaths(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROXY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PROXY_API_KEY"); v != "" {
		cfg.Security.APIKey = v
	}
	if v := os.Getenv("PROXY_AUTH_DIR"); v != "" {
		cfg.Security.AuthDir = v
	}
	if v := os.Getenv("PROXY_DEBUG"); v != "" {
		cfg.Security.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PROXY_UPSTREAM_PROXY"); v != "" {
		cfg.Upstream.Proxy = ProxyConfig{Enabled: true, URL: v}
	}
}

func expandPaths(cfg *Config) error {
	expanded, err := ExpandHome(cfg.Security.AuthDir)
	if err != nil {
		return fmt.Errorf("expand auth_dir: %w", err)
	}
	cfg.Security.AuthDir = expanded
	if cfg.Security.LogFile != "" {
		expanded, err := ExpandHome(cfg.Security.LogFile)
		if err != nil {
			return fmt.Errorf("expand log_file: %w", err)
		}
		cfg.Security.LogFile = expanded
	}
	return nil
}

func normalize(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8045
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Mapping.Custom == nil {
		cfg.Mapping.Custom = map[string]string{}
	}
	if cfg.Mapping.OpenAI == nil {
		cfg.Mapping.OpenAI = map[string]string{}
	}
	if cfg.Mapping.Anthropic == nil {
		cfg.Mapping.Anthropic = map[string]string{}
	}
	if cfg.Quota.PerType == nil {
		cfg.Quota.PerType = map[string]int{}
	}
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
