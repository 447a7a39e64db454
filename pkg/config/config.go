// Package config provides configuration loading and management for
// zcomposite. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"zcomposite/pkg/composite"
	"zcomposite/pkg/normalize"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Render parameters
	Render struct {
		// Workers specifies how many goroutines each pipeline stage
		// may use; 0 selects one per CPU core
		Workers int `yaml:"workers"`

		// WindowLow and WindowHigh are the default percentile window
		// applied to channels without an explicit window
		WindowLow  float64 `yaml:"windowLow"`
		WindowHigh float64 `yaml:"windowHigh"`

		// Palette lists the default channel colors as hex strings,
		// assigned positionally and cycled past the last entry
		Palette []string `yaml:"palette"`

		// PreviewMaxEdge bounds the longest edge of preview renders
		PreviewMaxEdge int `yaml:"previewMaxEdge"`
	} `yaml:"render"`

	// Server parameters
	Server struct {
		// Addr is the listen address of the render service
		Addr string `yaml:"addr"`

		// MaxUploadMB caps the size of uploaded volume files
		MaxUploadMB int `yaml:"maxUploadMB"`
	} `yaml:"server"`

	// Cache parameters
	Cache struct {
		// Dir enables the render artifact cache when non-empty
		Dir string `yaml:"dir"`

		// TTLMinutes expires cached artifacts; 0 keeps them forever
		TTLMinutes int `yaml:"ttlMinutes"`
	} `yaml:"cache"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default render parameters
	cfg.Render.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Render.WindowLow = normalize.DefaultWindow.Low
	cfg.Render.WindowHigh = normalize.DefaultWindow.High
	cfg.Render.Palette = composite.DefaultHexPalette()
	cfg.Render.PreviewMaxEdge = 512

	// Set default server parameters
	cfg.Server.Addr = ":8080"
	cfg.Server.MaxUploadMB = 256

	// Set default cache parameters
	cfg.Cache.Dir = ""
	cfg.Cache.TTLMinutes = 0

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Window returns the configured default percentile window.
func (c *Config) Window() normalize.Window {
	return normalize.Window{Low: c.Render.WindowLow, High: c.Render.WindowHigh}
}

// PaletteColors parses the configured palette into colors.
func (c *Config) PaletteColors() ([]composite.Color, error) {
	if len(c.Render.Palette) == 0 {
		return composite.DefaultPalette(), nil
	}

	colors := make([]composite.Color, len(c.Render.Palette))
	for i, h := range c.Render.Palette {
		col, err := composite.ParseHexColor(h)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		colors[i] = col
	}
	return colors, nil
}

// CacheTTL returns the configured cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
