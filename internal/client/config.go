package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/layout"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// DefaultTheme is used when no theme is configured
const DefaultTheme = "dracula"

// Config is the connection configuration read from
// ~/.config/hearth/client.toml. Flags override it.
type Config struct {
	Server   string    `toml:"server"`
	ServerID uuid.UUID `toml:"server_id"`
	UserID   uuid.UUID `toml:"user_id"`
	Token    string    `toml:"token" masq:"secret"`
	Theme    string    `toml:"theme"`
}

// DefaultConfigPath returns ~/.config/hearth/client.toml
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(dir, "hearth", "client.toml"), nil
}

// LoadConfig reads the client config. A missing file yields an empty
// config pointing at localhost.
func LoadConfig(path string) (*Config, error) {
	config := &Config{Server: "localhost:8080"}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read client config", goerr.V("path", path))
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse client config", goerr.V("path", path))
	}
	return config, nil
}

// AppConfig represents UI preferences stored in ~/.hearth/config.json
type AppConfig struct {
	Version int      `json:"version"`
	UI      UIConfig `json:"ui"`
}

// UIConfig holds UI-related preferences
type UIConfig struct {
	Theme  string        `json:"theme"`
	Layout layout.Layout `json:"layout"`
	// serverID -> categoryID -> collapsed
	CollapsedCategories map[string]map[string]bool `json:"collapsed_categories,omitempty"`
}

// DefaultAppConfig returns the preferences used before anything is saved
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Version: 1,
		UI: UIConfig{
			Theme:               DefaultTheme,
			Layout:              layout.Default(),
			CollapsedCategories: make(map[string]map[string]bool),
		},
	}
}

// IsCollapsed reports whether a category is collapsed in a server
func (c *UIConfig) IsCollapsed(serverID, categoryID uuid.UUID) bool {
	return c.CollapsedCategories[serverID.String()][categoryID.String()]
}

// SetCollapsed records the collapsed state of a category
func (c *UIConfig) SetCollapsed(serverID, categoryID uuid.UUID, collapsed bool) {
	key := serverID.String()
	if !collapsed {
		delete(c.CollapsedCategories[key], categoryID.String())
		if len(c.CollapsedCategories[key]) == 0 {
			delete(c.CollapsedCategories, key)
		}
		return
	}
	if c.CollapsedCategories == nil {
		c.CollapsedCategories = make(map[string]map[string]bool)
	}
	if c.CollapsedCategories[key] == nil {
		c.CollapsedCategories[key] = make(map[string]bool)
	}
	c.CollapsedCategories[key][categoryID.String()] = true
}

// ConfigManager loads and saves the UI preferences file
type ConfigManager struct {
	dir            string
	configFilePath string
	mu             sync.RWMutex
}

// DefaultDir returns ~/.hearth
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(homeDir, ".hearth"), nil
}

// NewConfigManager creates a configuration manager rooted at dir, creating
// the directory if needed
func NewConfigManager(dir string) (*ConfigManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create config directory", goerr.V("dir", dir))
	}
	return &ConfigManager{
		dir:            dir,
		configFilePath: filepath.Join(dir, "config.json"),
	}, nil
}

// Dir returns the directory holding the preferences and user themes
func (cm *ConfigManager) Dir() string {
	return cm.dir
}

// LoadAppConfig loads UI preferences. A missing file yields the defaults.
func (cm *ConfigManager) LoadAppConfig() (*AppConfig, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := os.ReadFile(cm.configFilePath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultAppConfig(), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read app config", goerr.V("path", cm.configFilePath))
	}

	config := DefaultAppConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse app config", goerr.V("path", cm.configFilePath))
	}

	if config.UI.CollapsedCategories == nil {
		config.UI.CollapsedCategories = make(map[string]map[string]bool)
	}
	if config.UI.Theme == "" {
		config.UI.Theme = DefaultTheme
	}
	config.UI.Layout = config.UI.Layout.Normalize()
	return config, nil
}

// SaveAppConfig saves UI preferences with an atomic replace
func (cm *ConfigManager) SaveAppConfig(config *AppConfig) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal app config")
	}

	tempFile := cm.configFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write app config", goerr.V("path", tempFile))
	}
	if err := os.Rename(tempFile, cm.configFilePath); err != nil {
		os.Remove(tempFile)
		return goerr.Wrap(err, "failed to save app config", goerr.V("path", cm.configFilePath))
	}
	return nil
}

// Update loads the preferences, applies fn and saves the result
func (cm *ConfigManager) Update(fn func(*AppConfig)) error {
	config, err := cm.LoadAppConfig()
	if err != nil {
		return err
	}
	fn(config)
	return cm.SaveAppConfig(config)
}
