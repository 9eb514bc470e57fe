package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds model provider configuration.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter", "mock".
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single attempt. A call that exceeds it surfaces as
	// ErrProviderUnavailable.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-sonnet"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "anthropic/claude-sonnet-4"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     8 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 45 * time.Second,
	}
}

// ConfigFromEnv overlays CASETUTOR_* environment variables on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "CASETUTOR_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.APIKey, "CASETUTOR_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "CASETUTOR_ANTHROPIC_MODEL")
	setString(&cfg.Anthropic.BaseURL, "CASETUTOR_ANTHROPIC_BASE_URL")

	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.APIKey, "CASETUTOR_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "CASETUTOR_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "CASETUTOR_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.APIKey, "CASETUTOR_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "CASETUTOR_GEMINI_MODEL")
	setString(&cfg.Gemini.BaseURL, "CASETUTOR_GEMINI_BASE_URL")

	setString(&cfg.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.APIKey, "CASETUTOR_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "CASETUTOR_OPENROUTER_MODEL")
	setString(&cfg.OpenRouter.BaseURL, "CASETUTOR_OPENROUTER_BASE_URL")

	if v := os.Getenv("CASETUTOR_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("CASETUTOR_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	return cfg
}

// DiscoverConfig picks the first provider whose API key is present when
// CASETUTOR_LLM_PROVIDER is unset. Order: Anthropic, OpenAI, Gemini,
// OpenRouter. Returns false when no key is found.
func DiscoverConfig() (Config, bool) {
	cfg := ConfigFromEnv()
	if os.Getenv("CASETUTOR_LLM_PROVIDER") != "" {
		return cfg, cfg.Validate() == nil
	}

	switch {
	case cfg.Anthropic.APIKey != "":
		cfg.Provider = "anthropic"
	case cfg.OpenAI.APIKey != "":
		cfg.Provider = "openai"
	case cfg.Gemini.APIKey != "":
		cfg.Provider = "gemini"
	case cfg.OpenRouter.APIKey != "":
		cfg.Provider = "openrouter"
	default:
		return Config{}, false
	}
	return cfg, true
}

// Validate checks that the selected provider has credentials. A missing key
// wraps ErrNotConfigured.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%w: %s API key is not set", ErrNotConfigured, c.Provider)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
