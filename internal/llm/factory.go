package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/cf-pulse/internal/auth"
)

// Providers lists the provider types NewProvider understands.
var Providers = []string{"anthropic", "openai", "openrouter", "ollama"}

// NewProvider creates a new LLM provider based on the given provider type and model.
// API keys come from the environment, then the credential store.
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey := auth.GetAPIKey("anthropic")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set (export it or run cfpulse auth anthropic)")
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey := auth.GetAPIKey("openai")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set (export it or run cfpulse auth openai)")
		}
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			return NewOpenAICompatibleProvider("openai", base, apiKey, model), nil
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "openrouter":
		apiKey := auth.GetAPIKey("openrouter")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is not set (export it or run cfpulse auth openrouter)")
		}
		return NewOpenRouterProvider(apiKey, model), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
