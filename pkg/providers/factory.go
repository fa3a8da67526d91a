package providers

import (
	"fmt"
	"strings"

	"github.com/noder-app/noder/pkg/config"
)

const geminiOpenAIBase = "https://generativelanguage.googleapis.com/v1beta/openai/"

// CreateProviderForModel routes a model name to the provider that serves
// it. Prefixed names ("ollama/llama3", "lmstudio/qwen", "openrouter/x/y")
// pin a backend explicitly; otherwise the name decides.
func CreateProviderForModel(cfg *config.Config, model string) (LLMProvider, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("config not set")
	}

	switch {
	case strings.HasPrefix(model, "ollama/"):
		return NewOpenAIProvider("ollama", "", cfg.Providers.Ollama.APIBase), strings.TrimPrefix(model, "ollama/"), nil

	case strings.HasPrefix(model, "lmstudio/"):
		return NewOpenAIProvider("lmstudio", "", cfg.Providers.LMStudio.APIBase), strings.TrimPrefix(model, "lmstudio/"), nil

	case strings.HasPrefix(model, "openrouter/"):
		p := cfg.Providers.OpenRouter
		base := p.APIBase
		if base == "" {
			base = "https://openrouter.ai/api/v1"
		}
		if p.APIKey == "" {
			return nil, "", fmt.Errorf("openrouter API key not configured")
		}
		return NewOpenAIProvider("openrouter", p.APIKey, base), strings.TrimPrefix(model, "openrouter/"), nil

	case strings.HasPrefix(model, "claude"):
		p := cfg.Providers.Anthropic
		if p.APIKey == "" {
			return nil, "", fmt.Errorf("anthropic API key not configured")
		}
		return NewAnthropicProvider(p.APIKey, p.APIBase), model, nil

	case strings.HasPrefix(model, "gemini"):
		p := cfg.Providers.Gemini
		if p.APIKey == "" {
			return nil, "", fmt.Errorf("gemini API key not configured")
		}
		base := p.APIBase
		if base == "" {
			base = geminiOpenAIBase
		}
		return NewOpenAIProvider("gemini", p.APIKey, base), model, nil

	default:
		p := cfg.Providers.OpenAI
		if p.APIKey == "" {
			return nil, "", fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider("openai", p.APIKey, p.APIBase), model, nil
	}
}
