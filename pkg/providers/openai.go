package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider speaks the OpenAI chat completions API. It also serves
// OpenRouter, Ollama and LM Studio, which expose compatible endpoints.
type OpenAIProvider struct {
	client openai.Client
	name   string
}

// NewOpenAIProvider builds a provider for any OpenAI-compatible endpoint.
// An empty apiBase uses the official API.
func NewOpenAIProvider(name, apiKey, apiBase string) *OpenAIProvider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		name:   name,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error) {
	if model == "" {
		return nil, fmt.Errorf("%s: model is required", p.name)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = openai.Float(temp)
	}
	if maxTokens, ok := options["max_tokens"].(int); ok {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion failed: %w", p.name, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty completion", p.name)
	}

	return &LLMResponse{
		Content: completion.Choices[0].Message.Content,
		Model:   completion.Model,
	}, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list models failed: %w", p.name, err)
	}

	var models []string
	for page != nil {
		for _, model := range page.Data {
			models = append(models, model.ID)
		}
		page, err = page.GetNextPage()
		if err != nil {
			return nil, err
		}
	}
	return models, nil
}
