package config

// Config is the root YAML configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Mapping   MappingConfig   `yaml:"mapping"`
	Quota     QuotaConfig     `yaml:"quota"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SecurityConfig struct {
	// APIKey is the inbound pass-through key. Empty disables auth.
	APIKey string `yaml:"api_key"`
	// AuthDir holds the exported account JSON files.
	AuthDir string `yaml:"auth_dir"`
	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	RPS     int  `yaml:"rps"`
	Burst   int  `yaml:"burst"`
}

// ProxyConfig describes the outbound proxy used for upstream calls.
// URL accepts http:// and socks5:// schemes, with optional userinfo.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type UpstreamConfig struct {
	Proxy ProxyConfig `yaml:"proxy"`
}

// MappingConfig holds the three model-routing tables, consulted in order:
// custom, then openai, then anthropic. First hit wins; a miss passes the
// requested name through unchanged.
type MappingConfig struct {
	Custom    map[string]string `yaml:"custom"`
	OpenAI    map[string]string `yaml:"openai"`
	Anthropic map[string]string `yaml:"anthropic"`
}

// QuotaConfig sets optional per-request-type usage ceilings per account.
// Zero or absent means the type is not tracked.
type QuotaConfig struct {
	PerType map[string]int `yaml:"per_type"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8045},
		Security: SecurityConfig{
			AuthDir: "~/.antigravity/accounts",
		},
		RateLimit: RateLimitConfig{Enabled: false, RPS: 10, Burst: 20},
		Mapping: MappingConfig{
			Custom: map[string]string{},
			OpenAI: map[string]string{
				"gpt-4o":        "gemini-3-pro-preview",
				"gpt-4o-mini":   "gemini-2.5-flash",
				"gpt-3.5-turbo": "gemini-2.5-flash",
			},
			Anthropic: map[string]string{
				"claude-sonnet-4-5": "gemini-3-pro-preview",
				"claude-opus-4-1":   "gemini-3-pro-preview",
				"claude-3-5-haiku":  "gemini-2.5-flash",
				"claude-3-5-sonnet": "gemini-3-pro-preview",
				"claude-3-7-sonnet": "gemini-3-pro-preview",
			},
		},
		Quota: QuotaConfig{PerType: map[string]int{}},
	}
}
