// Package config handles application configuration from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Search     SearchConfig     `yaml:"search_sources"`
	RateLimits RateLimitConfig  `yaml:"rate_limits"`
	Logging    LoggingConfig    `yaml:"logging"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Claims     ClaimsConfig     `yaml:"claims"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	EnableUI        bool          `yaml:"enable_ui"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AdminToken guards the audit log endpoint; empty disables the endpoint.
	AdminToken string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite
	Path   string `yaml:"path"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// UseTools asks the model for a forced function call instead of freeform markdown.
	UseTools bool `yaml:"use_tools"`
}

// PromptConfig holds the prompt sent to the model. Template must contain {{claim}}.
type PromptConfig struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`
}

type SearchConfig struct {
	Wikipedia  bool          `yaml:"wikipedia"`
	DuckDuckGo bool          `yaml:"duckduckgo"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"default_requests_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// NormalizerConfig holds the presentation constants of the response normalizer.
type NormalizerConfig struct {
	MaxSentences        int               `yaml:"max_sentences"`
	MaxSources          int               `yaml:"max_sources"`
	MaxFormattedLength  int               `yaml:"max_formatted_length"`
	Attribution         string            `yaml:"attribution"`
	VerdictMarkers      map[string]string `yaml:"verdict_markers"`
	FallbackExplanation string            `yaml:"fallback_explanation"`
	FallbackSourceTitle string            `yaml:"fallback_source_title"`
	FallbackSearchURL   string            `yaml:"fallback_search_url"` // %s is replaced by the escaped claim
	NoSourceTitle       string            `yaml:"no_source_title"`
}

type ClaimsConfig struct {
	MaxLength int `yaml:"max_length"`
}

const defaultSystemPrompt = `You are a precise myth-busting assistant. Follow the user's format EXACTLY.
Return ONLY the formatted text requested (no JSON, no extra commentary, no prefixes, no suffixes).
Ensure exactly 3 concise sentences in the summary and list 2-3 sources in markdown list form "[Name](URL)".`

const defaultPromptTemplate = `
Bust the myth or clarify the claim: "{{claim}}"

Instructions:
- Write a concise, 3-sentence summary that corrects or clarifies the claim.
- Clearly state what is factually wrong, misleading, or misunderstood and why.
- List 2-3 credible sources with direct links.

Format your response as:
[Myth-busting summary]

Sources:
- [Source 1 Name](Source 1 URL)
- [Source 2 Name](Source 2 URL)
`

// DefaultNormalizerConfig returns the presentation defaults used for social sharing.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		MaxSentences:       3,
		MaxSources:         3,
		MaxFormattedLength: 280,
		Attribution:        "Fact-CheckIt",
		VerdictMarkers: map[string]string{
			"TRUE":          "✅",
			"FALSE":         "❌",
			"MISLEADING":    "⚠️",
			"CANNOT_VERIFY": "🔍",
		},
		FallbackExplanation: "We could not produce a clear explanation for this claim. Please consult a trusted reference before sharing it.",
		FallbackSourceTitle: "Wikipedia search",
		FallbackSearchURL:   "https://en.wikipedia.org/w/index.php?search=%s",
		NoSourceTitle:       "No source available",
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			EnableUI:        true,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/factcheckit.db",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			MaxTokens:   500,
		},
		Prompt: PromptConfig{
			System:   defaultSystemPrompt,
			Template: defaultPromptTemplate,
		},
		Search: SearchConfig{
			Wikipedia:  true,
			DuckDuckGo: false,
			Timeout:    5 * time.Second,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Normalizer: DefaultNormalizerConfig(),
		Claims: ClaimsConfig{
			MaxLength: 1000,
		},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run generate-config to create one)", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate environment variables
	content := interpolateEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// An unset ${VAR} must not become a guessable token.
	if strings.HasPrefix(cfg.Server.AdminToken, "${") {
		cfg.Server.AdminToken = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GenerateSample creates a sample configuration file.
func GenerateSample(path string) error {
	sample := `# Fact-CheckIt Configuration

server:
  port: 8080
  enable_ui: true
  shutdown_timeout: 10s
  # Bearer token for GET /api/audit; the endpoint is off when unset
  admin_token: ${FACTCHECKIT_ADMIN_TOKEN}

database:
  driver: sqlite
  path: ./data/factcheckit.db

llm:
  provider: openai
  model: gpt-4o-mini
  api_key: ${OPENAI_API_KEY}
  # base_url: https://api.openai.com/v1
  temperature: 0
  max_tokens: 500
  # Ask for a structured function call instead of markdown text
  use_tools: false

# prompt:
#   system: "You are a precise myth-busting assistant..."
#   template: "Bust the myth or clarify the claim: \"{{claim}}\" ..."

search_sources:
  wikipedia: true
  duckduckgo: false
  timeout: 5s

rate_limits:
  default_requests_per_minute: 30

logging:
  level: info  # debug, info, warn, error
  format: json # json or text

normalizer:
  max_sentences: 3
  max_sources: 3
  max_formatted_length: 280
  attribution: Fact-CheckIt
  # verdict_markers:
  #   TRUE: "✅"
  #   FALSE: "❌"
  #   MISLEADING: "⚠️"
  #   CANNOT_VERIFY: "🔍"
  fallback_search_url: https://en.wikipedia.org/w/index.php?search=%s

claims:
  max_length: 1000
`
	return os.WriteFile(path, []byte(sample), 0644)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" || strings.HasPrefix(c.LLM.APIKey, "${") {
			return fmt.Errorf("OpenAI API key is required")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	if !strings.Contains(c.Prompt.Template, "{{claim}}") {
		return fmt.Errorf("prompt template must contain {{claim}}")
	}

	if c.Claims.MaxLength <= 0 {
		return fmt.Errorf("invalid claims.max_length: %d", c.Claims.MaxLength)
	}

	n := c.Normalizer
	if n.MaxSentences <= 0 || n.MaxSources <= 0 {
		return fmt.Errorf("normalizer caps must be positive")
	}
	if n.MaxFormattedLength < len([]rune(n.Attribution))+16 {
		return fmt.Errorf("normalizer.max_formatted_length %d is too small for attribution %q", n.MaxFormattedLength, n.Attribution)
	}
	if n.FallbackSearchURL != "" && strings.Count(n.FallbackSearchURL, "%s") != 1 {
		return fmt.Errorf("normalizer.fallback_search_url must contain exactly one %%s")
	}

	return nil
}

// interpolateEnvVars replaces ${VAR_NAME} with environment variable values.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match // Keep original if not set
	})
}
