package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
)

// legacySettings mirrors the flat settings.json the earlier desktop builds
// wrote. Fields map onto the structured Config during migration.
type legacySettings struct {
	ReplicateAPIKey      string          `json:"replicate_api_key,omitempty"`
	OpenAIAPIKey         string          `json:"openai_api_key,omitempty"`
	OpenRouterAPIKey     string          `json:"openrouter_api_key,omitempty"`
	AnthropicAPIKey      string          `json:"anthropic_api_key,omitempty"`
	GeminiAPIKey         string          `json:"gemini_api_key,omitempty"`
	OllamaBaseURL        string          `json:"ollama_base_url,omitempty"`
	LMStudioBaseURL      string          `json:"lm_studio_base_url,omitempty"`
	DefaultSaveLocation  string          `json:"default_save_location,omitempty"`
	ShowTemplates        *bool           `json:"show_templates,omitempty"`
	ShowAssistantPanel   *bool           `json:"show_assistant_panel,omitempty"`
	RunButtonUnlocked    *bool           `json:"run_button_unlocked,omitempty"`
	RunButtonPosition    *ButtonPosition `json:"run_button_position,omitempty"`
	DefaultTextModel     string          `json:"default_text_model,omitempty"`
	DefaultImageModel    string          `json:"default_image_model,omitempty"`
	DefaultVideoModel    string          `json:"default_video_model,omitempty"`
	DefaultAudioModel    string          `json:"default_audio_model,omitempty"`
	DefaultUpscalerModel string          `json:"default_upscaler_model,omitempty"`
	EdgeType             string          `json:"edge_type,omitempty"`
}

// LoadLegacySettingsFile parses a legacy settings.json into a Config.
func LoadLegacySettingsFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var legacy legacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.Providers.Replicate.APIKey = legacy.ReplicateAPIKey
	cfg.Providers.OpenAI.APIKey = legacy.OpenAIAPIKey
	cfg.Providers.OpenRouter.APIKey = legacy.OpenRouterAPIKey
	cfg.Providers.Anthropic.APIKey = legacy.AnthropicAPIKey
	cfg.Providers.Gemini.APIKey = legacy.GeminiAPIKey
	if legacy.OllamaBaseURL != "" {
		cfg.Providers.Ollama.APIBase = legacy.OllamaBaseURL
	}
	if legacy.LMStudioBaseURL != "" {
		cfg.Providers.LMStudio.APIBase = legacy.LMStudioBaseURL
	}
	cfg.DefaultSaveLocation = legacy.DefaultSaveLocation
	if legacy.ShowTemplates != nil {
		cfg.UI.ShowTemplates = *legacy.ShowTemplates
	}
	if legacy.ShowAssistantPanel != nil {
		cfg.UI.ShowAssistantPanel = *legacy.ShowAssistantPanel
	}
	if legacy.RunButtonUnlocked != nil {
		cfg.UI.RunButtonUnlocked = *legacy.RunButtonUnlocked
	}
	cfg.UI.RunButtonPosition = legacy.RunButtonPosition
	cfg.UI.EdgeType = legacy.EdgeType
	cfg.DefaultModels = DefaultModels{
		Text:     legacy.DefaultTextModel,
		Image:    legacy.DefaultImageModel,
		Video:    legacy.DefaultVideoModel,
		Audio:    legacy.DefaultAudioModel,
		Upscaler: legacy.DefaultUpscalerModel,
	}

	return cfg, nil
}

func migrateLegacySettings(ctx context.Context, store *configStore, legacyPath string) (*Config, bool, error) {
	if legacyPath == "" {
		return nil, false, nil
	}

	if _, err := os.Stat(legacyPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	cfg, err := LoadLegacySettingsFile(legacyPath)
	if err != nil {
		return nil, false, err
	}

	if err := store.save(ctx, cfg); err != nil {
		return nil, false, err
	}

	backupPath := legacyPath + ".bak"
	if err := os.Rename(legacyPath, backupPath); err != nil {
		_ = os.WriteFile(legacyPath+".migrated", []byte("settings migrated to DB"), 0644)
	}

	return cfg, true, nil
}
