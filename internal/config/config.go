// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default client configuration values.
const (
	DefaultAddr    = "http://127.0.0.1:7465"
	DefaultOutput  = "plain"
	DefaultTimeout = 5 * time.Second
)

// Config is the configuration of the toast CLI.
type Config struct {
	Client ClientConfig `toml:"client"`
	Output OutputConfig `toml:"output"`
}

// ClientConfig holds connection settings for the daemon HTTP API.
type ClientConfig struct {
	Addr    string   `toml:"addr"`
	Timeout Duration `toml:"timeout"`
}

// OutputConfig holds default output options.
type OutputConfig struct {
	Format   string `toml:"format"`    // json, yaml, plain, ids, dmenu
	MaxWidth int    `toml:"max_width"` // Truncate plain output (0 = no limit)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Addr:    DefaultAddr,
			Timeout: Duration(DefaultTimeout),
		},
		Output: OutputConfig{
			Format:   DefaultOutput,
			MaxWidth: 80,
		},
	}
}

// ConfigDir returns the toastd config directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "toastd")
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "toast.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
