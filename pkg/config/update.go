package config

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

func (c *Config) EnsureDashboardToken() (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.TrimSpace(c.Dashboard.Token) != "" {
		return "", false, nil
	}

	token, err := generateToken(24)
	if err != nil {
		return "", false, err
	}

	c.Dashboard.Token = token
	return token, true, nil
}

func (c *Config) RotateDashboardToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := generateToken(24)
	if err != nil {
		return "", err
	}

	c.Dashboard.Token = token
	return token, nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ApplyUpdate copies non-secret fields from update into c. Secrets only
// change when a non-empty value appears in secretUpdates, so masked values
// echoed back by the frontend never overwrite stored keys.
func (c *Config) ApplyUpdate(update *Config, secretUpdates map[string]string) {
	if c == nil || update == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage = update.Storage
	c.WhatsApp = update.WhatsApp
	c.Updates = update.Updates
	c.DefaultModels = update.DefaultModels
	c.DefaultSaveLocation = update.DefaultSaveLocation

	c.UI.ShowTemplates = update.UI.ShowTemplates
	c.UI.ShowAssistantPanel = update.UI.ShowAssistantPanel
	c.UI.RunButtonUnlocked = update.UI.RunButtonUnlocked
	c.UI.EdgeType = update.UI.EdgeType
	if update.UI.RunButtonPosition != nil {
		pos := *update.UI.RunButtonPosition
		c.UI.RunButtonPosition = &pos
	} else {
		c.UI.RunButtonPosition = nil
	}

	c.Dashboard.Enabled = update.Dashboard.Enabled
	c.Dashboard.Host = update.Dashboard.Host
	c.Dashboard.Port = update.Dashboard.Port

	c.Providers.Replicate.APIBase = update.Providers.Replicate.APIBase
	c.Providers.OpenAI.APIBase = update.Providers.OpenAI.APIBase
	c.Providers.OpenRouter.APIBase = update.Providers.OpenRouter.APIBase
	c.Providers.Anthropic.APIBase = update.Providers.Anthropic.APIBase
	c.Providers.Gemini.APIBase = update.Providers.Gemini.APIBase
	c.Providers.Ollama.APIBase = update.Providers.Ollama.APIBase
	c.Providers.LMStudio.APIBase = update.Providers.LMStudio.APIBase

	ApplySecretUpdates(c, secretUpdates)
}
