package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// ProviderConfig selects and configures a model backend.
type ProviderConfig struct {
	Name    string // openai, openrouter, anthropic, ollama
	APIKey  string
	Model   string
	BaseURL string
}

// NewModel builds the langchaingo model for cfg.
func NewModel(cfg ProviderConfig) (llms.Model, error) {
	switch cfg.Name {
	case "openai", "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an api key", cfg.Name)
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Name == "openrouter" {
			baseURL = openRouterBaseURL
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.New(opts...)

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an api key", cfg.Name)
		}
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.New(opts...)

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)

	default:
		return nil, fmt.Errorf("provider %q not supported", cfg.Name)
	}
}
