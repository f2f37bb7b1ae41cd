package agent

import (
	"context"
	"fmt"
)

// LLMProvider is the model-invocation collaborator. Invoke drives handler
// turns (free-form or tool-call responses); Classify is the router's
// structured-output call, returning a raw label to be validated by the
// router. Tests substitute a scripted fake.
type LLMProvider interface {
	Invoke(ctx context.Context, request InvokeRequest) (*InvokeResponse, error)
	Classify(ctx context.Context, text string) (string, error)
	Provider() string
}

// ProviderConfig selects and configures an LLM provider.
type ProviderConfig struct {
	Provider string // openrouter, anthropic
	APIKey   string
	Model    string
}

// NewLLMProvider creates a provider from configuration.
func NewLLMProvider(cfg ProviderConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouterProvider(cfg.APIKey, cfg.Model), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
