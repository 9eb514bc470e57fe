package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/store"
)

// NewProvider builds the provider named by cfg and wraps it:
// caller → retry → timeout → logging → provider.
func NewProvider(ctx context.Context, cfg Config, events store.LLMEventRepo, log *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, events, log)
	bounded := WithTimeout(logged, cfg.Timeout)
	return WithRetry(bounded, cfg.Retry), nil
}

// NewProviderFromEnv discovers credentials from the environment. It returns
// an error wrapping ErrNotConfigured when no provider key is set.
func NewProviderFromEnv(ctx context.Context, events store.LLMEventRepo, log *zap.Logger) (Provider, error) {
	cfg, found := DiscoverConfig()
	if !found {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY or OPENROUTER_API_KEY", ErrNotConfigured)
	}
	return NewProvider(ctx, cfg, events, log)
}
