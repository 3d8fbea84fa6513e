package completion

import "fmt"

// ProviderConfig selects and configures a completion backend.
type ProviderConfig struct {
	// Provider is "anthropic", "ollama", or "auto". Auto picks
	// anthropic when an API key is configured and falls back to a
	// local Ollama server otherwise.
	Provider string

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicVersion string
	OllamaURL        string
}

// NewProvider builds the configured provider.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("completion: anthropic provider requires an API key")
		}
		return NewAnthropicClient(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicVersion), nil
	case "ollama":
		return NewOllamaClient(cfg.OllamaURL), nil
	case "auto", "":
		if cfg.AnthropicAPIKey != "" {
			return NewAnthropicClient(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicVersion), nil
		}
		return NewOllamaClient(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("completion: unknown provider %q", cfg.Provider)
	}
}
