// Package config holds the application settings and their encrypted
// persistence. Settings live in a single-row table in SQLite or PostgreSQL,
// sealed with AES-256-GCM under a master key kept in the system keyring.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// ProviderConfig holds credentials for one model provider.
type ProviderConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	APIBase string `json:"api_base,omitempty"`
}

// ProvidersConfig groups every supported model provider.
type ProvidersConfig struct {
	Replicate  ProviderConfig `json:"replicate"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Anthropic  ProviderConfig `json:"anthropic"`
	Gemini     ProviderConfig `json:"gemini"`
	Ollama     ProviderConfig `json:"ollama"`
	LMStudio   ProviderConfig `json:"lm_studio"`
}

// DefaultModels selects the preferred model per node type.
type DefaultModels struct {
	Text     string `json:"text,omitempty"`
	Image    string `json:"image,omitempty"`
	Video    string `json:"video,omitempty"`
	Audio    string `json:"audio,omitempty"`
	Upscaler string `json:"upscaler,omitempty"`
}

// ButtonPosition is the floating run button's saved location.
type ButtonPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UIConfig holds editor preferences persisted for the frontend.
type UIConfig struct {
	ShowTemplates      bool            `json:"show_templates"`
	ShowAssistantPanel bool            `json:"show_assistant_panel"`
	RunButtonUnlocked  bool            `json:"run_button_unlocked"`
	RunButtonPosition  *ButtonPosition `json:"run_button_position,omitempty"`
	EdgeType           string          `json:"edge_type,omitempty"`
}

// DashboardConfig configures the local dashboard server.
type DashboardConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Token   string `json:"token,omitempty"`
}

// StorageConfig selects the persistence backend for workflows and
// credentials.
type StorageConfig struct {
	Type        string `json:"type"` // "file" or "postgres"
	DatabaseURL string `json:"database_url,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	SSLEnabled  bool   `json:"ssl_enabled"`
}

// WhatsAppConfig configures the file-mailbox bridge.
type WhatsAppConfig struct {
	MailboxDir string `json:"mailbox_dir,omitempty"`
}

// UpdatesConfig configures the self-updater.
type UpdatesConfig struct {
	Repo string `json:"repo,omitempty"` // "owner/name" on GitHub
}

// Config is the root settings document. All access from concurrent
// components goes through Clone or the accessor methods.
type Config struct {
	mu sync.RWMutex

	Providers           ProvidersConfig `json:"providers"`
	DefaultModels       DefaultModels   `json:"default_models"`
	UI                  UIConfig        `json:"ui"`
	Dashboard           DashboardConfig `json:"dashboard"`
	Storage             StorageConfig   `json:"storage"`
	WhatsApp            WhatsAppConfig  `json:"whatsapp"`
	Updates             UpdatesConfig   `json:"updates"`
	DefaultSaveLocation string          `json:"default_save_location,omitempty"`

	storePath string
}

func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Ollama:   ProviderConfig{APIBase: "http://localhost:11434"},
			LMStudio: ProviderConfig{APIBase: "http://localhost:1234"},
		},
		Dashboard: DashboardConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    4520,
		},
		Storage: StorageConfig{
			Type: "file",
		},
		Updates: UpdatesConfig{
			Repo: "noder-app/noder",
		},
	}
}

// AppDataDir resolves the application data root.
func AppDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "noder"), nil
}

// Load reads the configuration from the store at path (empty selects the
// default location), migrating a legacy settings.json and applying
// environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromStore(path)
	if err != nil {
		return nil, err
	}

	cfg.storePath = path
	if applyEnvOverrides(cfg) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save persists the configuration back to its store.
func (c *Config) Save() error {
	return saveConfigToStore(c.storePath, c)
}

// Clone returns a deep copy safe to read without holding the lock.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.Marshal(c)
	if err != nil {
		return DefaultConfig()
	}
	clone := &Config{storePath: c.storePath}
	if err := json.Unmarshal(data, clone); err != nil {
		return DefaultConfig()
	}
	return clone
}
