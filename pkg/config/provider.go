package config

import (
	"fmt"
	"os"

	"github.com/entrhq/ember/pkg/llm/openai"
)

// BuildProvider creates an LLM provider from configuration precedence:
// CLI flags > environment variables > config file > defaults.
func BuildProvider(cliModel, cliBaseURL, cliAPIKey, defaultModel string) (*openai.Provider, error) {
	model := cliModel
	baseURL := cliBaseURL
	apiKey := cliAPIKey

	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if llmConfig := GetLLM(); llmConfig != nil {
		if model == "" || model == defaultModel {
			if v := llmConfig.GetModel(); v != "" {
				model = v
			}
		}
		if baseURL == "" {
			baseURL = llmConfig.GetBaseURL()
		}
		if apiKey == "" {
			apiKey = llmConfig.GetAPIKey()
		}
	}

	if model == "" {
		model = defaultModel
	}
	if apiKey == "" {
		return nil, fmt.Errorf("config: API key required (set OPENAI_API_KEY, use -api-key, or configure ~/.ember/config.json)")
	}

	opts := []openai.ProviderOption{openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	provider, err := openai.NewProvider(apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: create LLM provider: %w", err)
	}
	return provider, nil
}
