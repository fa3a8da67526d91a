package config

import "strings"

type secretAccessor struct {
	Path string
	Get  func(*Config) string
	Set  func(*Config, string)
}

var secretAccessors = []secretAccessor{
	{
		Path: "dashboard.token",
		Get:  func(c *Config) string { return c.Dashboard.Token },
		Set:  func(c *Config, v string) { c.Dashboard.Token = v },
	},
	{
		Path: "providers.replicate.api_key",
		Get:  func(c *Config) string { return c.Providers.Replicate.APIKey },
		Set:  func(c *Config, v string) { c.Providers.Replicate.APIKey = v },
	},
	{
		Path: "providers.openai.api_key",
		Get:  func(c *Config) string { return c.Providers.OpenAI.APIKey },
		Set:  func(c *Config, v string) { c.Providers.OpenAI.APIKey = v },
	},
	{
		Path: "providers.openrouter.api_key",
		Get:  func(c *Config) string { return c.Providers.OpenRouter.APIKey },
		Set:  func(c *Config, v string) { c.Providers.OpenRouter.APIKey = v },
	},
	{
		Path: "providers.anthropic.api_key",
		Get:  func(c *Config) string { return c.Providers.Anthropic.APIKey },
		Set:  func(c *Config, v string) { c.Providers.Anthropic.APIKey = v },
	},
	{
		Path: "providers.gemini.api_key",
		Get:  func(c *Config) string { return c.Providers.Gemini.APIKey },
		Set:  func(c *Config, v string) { c.Providers.Gemini.APIKey = v },
	},
}

func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 5 {
		return "*****" + value
	}
	return "*****" + value[len(value)-5:]
}

func SecretMaskMap(cfg *Config) map[string]string {
	result := make(map[string]string)
	if cfg == nil {
		return result
	}
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	for _, accessor := range secretAccessors {
		value := accessor.Get(cfg)
		if value != "" {
			result[accessor.Path] = MaskSecret(value)
		}
	}
	return result
}

func ApplySecretUpdates(cfg *Config, updates map[string]string) {
	if cfg == nil || len(updates) == 0 {
		return
	}
	for _, accessor := range secretAccessors {
		if value, ok := updates[accessor.Path]; ok && strings.TrimSpace(value) != "" {
			accessor.Set(cfg, strings.TrimSpace(value))
		}
	}
}

func ClearSecrets(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	for _, accessor := range secretAccessors {
		accessor.Set(cfg, "")
	}
}
