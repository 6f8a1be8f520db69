package model

import "time"

// Config is the complete deepcheck configuration
type Config struct {
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Notify       NotifyConfig       `yaml:"notify" mapstructure:"notify"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Preview      PreviewConfig      `yaml:"preview" mapstructure:"preview"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// HistoryConfig selects the key-value backend that holds the history log
type HistoryConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // memory, disk, sqlite, layered
	Path    string `yaml:"path" mapstructure:"path"`       // directory (disk) or database file (sqlite, layered)
}

// ServerConfig configures `deepcheck serve`
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// NotifyConfig configures the cross-process history change relay.
// The relay is disabled when no brokers are set.
type NotifyConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`
}

// HTTPConfig configures outbound HTTP used for link previews
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// PreviewConfig controls title lookup for URL content without a title
type PreviewConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`

	// Host authority tiers shown next to a preview. Subdomains match.
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"` // exact host -> tier
}

// LLMConfig configures the optional plain-language explanation
type LLMConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model          string `yaml:"model" mapstructure:"model"`
	APIKey         string `yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL        string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictEvidence bool   `yaml:"strict_evidence" mapstructure:"strict_evidence"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ConcurrencyConfig configures the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits preview fetches per domain and ingress per client
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			Backend: "sqlite",
			Path:    "deepcheck.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Notify: NotifyConfig{
			Topic:   "deepcheck.history",
			GroupID: "",
		},
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "DeepCheck/0.1 (+https://github.com/ppiankov/deepcheck)",
			MaxBodyBytes: 2_000_000,
		},
		Preview: PreviewConfig{
			Enabled:       false,
			RespectRobots: true,
			PrimaryDomains: []string{
				"gov", "gov.uk", "europa.eu", "who.int", "un.org", "edu", "ac.uk",
			},
			SecondaryDomains: []string{
				"reuters.com", "apnews.com", "bbc.co.uk", "bbc.com", "nature.com", "science.org",
				"snopes.com", "politifact.com", "factcheck.org", "fullfact.org",
			},
		},
		LLM: LLMConfig{
			Timeout:        30,
			StrictEvidence: true,
			MaxTokens:      600,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
