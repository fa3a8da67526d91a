package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/noder-app/noder/pkg/config"
)

// DynamicProvider resolves provider configuration at request time so API key
// updates from the dashboard take effect without restarting the app.
type DynamicProvider struct {
	cfg *config.Config

	mu        sync.Mutex
	lastSig   string
	lastModel string
	provider  LLMProvider
	resolved  string
}

func NewDynamicProvider(cfg *config.Config) *DynamicProvider {
	return &DynamicProvider{cfg: cfg}
}

func (p *DynamicProvider) Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("dynamic provider: config not set")
	}

	requestedModel := model
	if requestedModel == "" {
		requestedModel = p.GetDefaultModel()
	}
	if requestedModel == "" {
		return nil, fmt.Errorf("dynamic provider: no model requested and no default configured")
	}

	// Snapshot config to avoid data races while the dashboard updates it.
	snapshot := p.cfg.Clone()
	provider, resolvedModel, err := p.getOrCreateProvider(snapshot, requestedModel)
	if err != nil {
		return nil, err
	}

	return provider.Chat(ctx, messages, resolvedModel, options)
}

func (p *DynamicProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.cfg == nil {
		return nil, fmt.Errorf("dynamic provider: config not set")
	}
	model := p.GetDefaultModel()
	if model == "" {
		return nil, fmt.Errorf("dynamic provider: no default model configured")
	}

	snapshot := p.cfg.Clone()
	provider, _, err := p.getOrCreateProvider(snapshot, model)
	if err != nil {
		return nil, err
	}
	return provider.ListModels(ctx)
}

func (p *DynamicProvider) GetDefaultModel() string {
	if p.cfg == nil {
		return ""
	}
	snapshot := p.cfg.Clone()
	return snapshot.DefaultModels.Text
}

func (p *DynamicProvider) getOrCreateProvider(cfgSnapshot *config.Config, model string) (LLMProvider, string, error) {
	sig := providerSignatureForModel(cfgSnapshot, model)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.provider != nil && p.lastSig == sig && p.lastModel == model {
		return p.provider, p.resolved, nil
	}

	next, resolved, err := CreateProviderForModel(cfgSnapshot, model)
	if err != nil {
		return nil, "", err
	}

	p.provider = next
	p.lastSig = sig
	p.lastModel = model
	p.resolved = resolved
	return p.provider, p.resolved, nil
}

func providerSignatureForModel(cfg *config.Config, model string) string {
	if cfg == nil {
		return model + "|nil"
	}

	return model + "|" +
		cfg.Providers.OpenAI.APIKey + "|" + cfg.Providers.OpenAI.APIBase + "|" +
		cfg.Providers.OpenRouter.APIKey + "|" + cfg.Providers.OpenRouter.APIBase + "|" +
		cfg.Providers.Anthropic.APIKey + "|" + cfg.Providers.Anthropic.APIBase + "|" +
		cfg.Providers.Gemini.APIKey + "|" + cfg.Providers.Gemini.APIBase + "|" +
		cfg.Providers.Ollama.APIBase + "|" +
		cfg.Providers.LMStudio.APIBase
}
