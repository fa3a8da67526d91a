// Package providers exposes the model backends workflow nodes run against.
package providers

import "context"

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// LLMResponse is the assistant's reply.
type LLMResponse struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// LLMProvider is a chat-capable model backend.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}
