package penenv

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Zoom bounds applied to both editor and terminal scale factors.
const (
	MinZoomScale     = 0.5
	MaxZoomScale     = 3.0
	DefaultZoomScale = 1.0
)

// MonitorVisibility controls which system monitors the status bar shows.
type MonitorVisibility struct {
	ShowCPU     bool `yaml:"show_cpu"`
	ShowRAM     bool `yaml:"show_ram"`
	ShowNetwork bool `yaml:"show_network"`
}

// KeyboardShortcuts holds the configurable key bindings. Values are GTK key
// names ("grave" is the backtick key).
type KeyboardShortcuts struct {
	ToggleDrawer    string `yaml:"toggle_drawer"`
	InsertTarget    string `yaml:"insert_target"`
	InsertTimestamp string `yaml:"insert_timestamp"`
	NewShell        string `yaml:"new_shell"`
	NewSplit        string `yaml:"new_split"`
}

// Settings is the application configuration persisted to settings.yaml.
type Settings struct {
	MonitorVisibility       MonitorVisibility `yaml:"monitor_visibility"`
	KeyboardShortcuts       KeyboardShortcuts `yaml:"keyboard_shortcuts"`
	EnableCommandLogging    bool              `yaml:"enable_command_logging"`
	TextZoomScale           float64           `yaml:"text_zoom_scale"`
	TerminalZoomScale       float64           `yaml:"terminal_zoom_scale"`
	TerminalScrollbackLines int               `yaml:"terminal_scrollback_lines"`
}

// DefaultSettings returns the settings used when no settings.yaml exists.
func DefaultSettings() Settings {
	return Settings{
		MonitorVisibility: MonitorVisibility{
			ShowCPU:     true,
			ShowRAM:     true,
			ShowNetwork: true,
		},
		KeyboardShortcuts: KeyboardShortcuts{
			ToggleDrawer:    "grave",
			InsertTarget:    "t",
			InsertTimestamp: "T",
			NewShell:        "N",
			NewSplit:        "S",
		},
		EnableCommandLogging:    true,
		TextZoomScale:           DefaultZoomScale,
		TerminalZoomScale:       DefaultZoomScale,
		TerminalScrollbackLines: 10000,
	}
}

// DefaultSettingsYAML renders the default settings as YAML. Packages ship it
// as a conffile so a fresh install starts from a known-good configuration.
func DefaultSettingsYAML() ([]byte, error) {
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("serializing default settings: %w", err)
	}
	return data, nil
}

// ClampZoom forces a zoom scale into the supported range.
func ClampZoom(scale float64) float64 {
	if scale < MinZoomScale {
		return MinZoomScale
	}
	if scale > MaxZoomScale {
		return MaxZoomScale
	}
	return scale
}

// Config locates the PenEnv configuration directory and owns access to the
// files inside it.
type Config struct {
	// Dir is the configuration directory, e.g. ~/.config/penenv.
	Dir string
}

// DefaultConfig resolves the configuration directory from XDG_CONFIG_HOME,
// falling back to ~/.config, and creates it when missing.
func DefaultConfig() (*Config, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return NewConfig(filepath.Join(base, "penenv"))
}

// NewConfig uses dir as the configuration directory, creating it when missing.
func NewConfig(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	return &Config{Dir: dir}, nil
}

// SettingsPath returns the settings.yaml path.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, "settings.yaml")
}

// CustomCommandsPath returns the custom_commands.yaml path.
func (c *Config) CustomCommandsPath() string {
	return filepath.Join(c.Dir, "custom_commands.yaml")
}

// LoadSettings reads settings.yaml. A missing or unparseable file yields the
// defaults; the application must come up with a usable configuration no
// matter what is on disk. Zoom scales are clamped on load.
func (c *Config) LoadSettings() Settings {
	settings := DefaultSettings()

	data, err := os.ReadFile(c.SettingsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("could not read settings, using defaults", zap.Error(err))
		}
		return settings
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		zap.L().Warn("could not parse settings.yaml, using defaults", zap.Error(err))
		return DefaultSettings()
	}

	settings.TextZoomScale = ClampZoom(settings.TextZoomScale)
	settings.TerminalZoomScale = ClampZoom(settings.TerminalZoomScale)
	return settings
}

// SaveSettings writes settings.yaml, clamping zoom scales first.
func (c *Config) SaveSettings(settings Settings) error {
	settings.TextZoomScale = ClampZoom(settings.TextZoomScale)
	settings.TerminalZoomScale = ClampZoom(settings.TerminalZoomScale)

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("serializing settings: %w", err)
	}
	if err := os.WriteFile(c.SettingsPath(), data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
