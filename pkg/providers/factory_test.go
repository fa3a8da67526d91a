package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noder-app/noder/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers.OpenAI.APIKey = "sk-openai"
	cfg.Providers.OpenRouter.APIKey = "sk-or"
	cfg.Providers.Anthropic.APIKey = "sk-ant"
	cfg.Providers.Gemini.APIKey = "sk-gem"
	return cfg
}

func TestCreateProviderForModelRouting(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		model     string
		wantType  interface{}
		wantModel string
	}{
		{"gpt-4o", &OpenAIProvider{}, "gpt-4o"},
		{"claude-sonnet-4-20250514", &AnthropicProvider{}, "claude-sonnet-4-20250514"},
		{"gemini-2.0-flash", &OpenAIProvider{}, "gemini-2.0-flash"},
		{"ollama/llama3", &OpenAIProvider{}, "llama3"},
		{"lmstudio/qwen2.5", &OpenAIProvider{}, "qwen2.5"},
		{"openrouter/meta-llama/llama-3-70b", &OpenAIProvider{}, "meta-llama/llama-3-70b"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, resolved, err := CreateProviderForModel(cfg, tt.model)
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, provider)
			assert.Equal(t, tt.wantModel, resolved)
		})
	}
}

func TestCreateProviderForModelMissingKey(t *testing.T) {
	cfg := config.DefaultConfig()

	_, _, err := CreateProviderForModel(cfg, "gpt-4o")
	assert.Error(t, err)

	_, _, err = CreateProviderForModel(cfg, "claude-sonnet-4-20250514")
	assert.Error(t, err)

	// Local backends need no key.
	_, _, err = CreateProviderForModel(cfg, "ollama/llama3")
	assert.NoError(t, err)
}

func TestCreateProviderForModelNilConfig(t *testing.T) {
	_, _, err := CreateProviderForModel(nil, "gpt-4o")
	assert.Error(t, err)
}

func TestDynamicProviderDefaultModel(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultModels.Text = "gpt-4o"

	p := NewDynamicProvider(cfg)
	assert.Equal(t, "gpt-4o", p.GetDefaultModel())
}

func TestDynamicProviderCachesBySignature(t *testing.T) {
	cfg := testConfig()
	p := NewDynamicProvider(cfg)

	first, resolved, err := p.getOrCreateProvider(cfg.Clone(), "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resolved)

	second, _, err := p.getOrCreateProvider(cfg.Clone(), "gpt-4o")
	require.NoError(t, err)
	assert.Same(t, first, second)

	// A key rotation invalidates the cached provider.
	cfg.Providers.OpenAI.APIKey = "sk-rotated"
	third, _, err := p.getOrCreateProvider(cfg.Clone(), "gpt-4o")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}
