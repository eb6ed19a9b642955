package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "250ms", "1m", or integer milliseconds.
// A value of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Plain integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for toastd.
// Loaded from $XDG_CONFIG_HOME/toastd/toastd.toml
type DaemonConfig struct {
	Stack    StackConfig   `toml:"stack"`
	Display  DisplayConfig `toml:"display"`
	Timeouts TimeoutConfig `toml:"timeouts"`
	Audio    AudioConfig   `toml:"audio"`
	DBus     DBusConfig    `toml:"dbus"`
	HTTP     HTTPConfig    `toml:"http"`
}

// StackConfig configures the stack manager.
type StackConfig struct {
	HistoryLimit  int      `toml:"history_limit"`  // 0 = unlimited
	HideAll       string   `toml:"hide_all"`       // "deferred" or "immediate"
	FrameInterval Duration `toml:"frame_interval"` // Headless frame pacing
}

// DisplayConfig contains renderer settings.
type DisplayConfig struct {
	ExitDelay     Duration `toml:"exit_delay"`     // Closed toasts linger this long before destroy
	Markdown      bool     `toml:"markdown"`       // Render string content as markdown
	MarkdownStyle string   `toml:"markdown_style"` // glamour standard style name
	ShowAges      bool     `toml:"show_ages"`      // "2 minutes ago" next to each toast
	Placement     string   `toml:"placement"`      // Default placement hint
}

// TimeoutConfig contains auto-dismiss timeouts per urgency level.
// A value of "0" or 0 means never expire.
type TimeoutConfig struct {
	Low      Duration `toml:"low"`
	Normal   Duration `toml:"normal"`
	Critical Duration `toml:"critical"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-urgency sound file paths.
type SoundConfig struct {
	Low      string `toml:"low"`
	Normal   string `toml:"normal"`
	Critical string `toml:"critical"`
}

// DBusConfig controls the org.freedesktop.Notifications bridge.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

// HTTPConfig controls the HTTP API.
type HTTPConfig struct {
	Listen     string   `toml:"listen"`      // Empty disables the API
	Metrics    bool     `toml:"metrics"`     // Serve /metrics
	StreamPing Duration `toml:"stream_ping"` // Websocket keepalive interval
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Stack: StackConfig{
			HistoryLimit:  50,
			HideAll:       string(stack.HideAllDeferred),
			FrameInterval: Duration(16 * time.Millisecond),
		},
		Display: DisplayConfig{
			ExitDelay:     Duration(300 * time.Millisecond),
			Markdown:      false,
			MarkdownStyle: "dark",
			ShowAges:      true,
			Placement:     string(model.PlacementBottom),
		},
		Timeouts: TimeoutConfig{
			Low:      Duration(5 * time.Second),
			Normal:   Duration(10 * time.Second),
			Critical: Duration(0), // Never expires
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
		DBus: DBusConfig{
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Listen:     "127.0.0.1:7465",
			Metrics:    true,
			StreamPing: Duration(30 * time.Second),
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(ConfigDir(), "toastd.toml")
}

// LoadDaemonConfig loads the daemon configuration from path.
// If path is empty the default path is used. A missing file yields the defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveDaemonConfig writes the daemon configuration to path atomically.
func SaveDaemonConfig(cfg *DaemonConfig, path string) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Stack.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.Stack.HistoryLimit)
	}
	if _, err := stack.ParseHideAllMode(c.Stack.HideAll); err != nil {
		return err
	}
	if c.Stack.FrameInterval < 0 {
		return fmt.Errorf("frame_interval must not be negative, got %s", c.Stack.FrameInterval.Duration())
	}
	if c.Display.ExitDelay < 0 {
		return fmt.Errorf("exit_delay must not be negative, got %s", c.Display.ExitDelay.Duration())
	}
	if c.Display.Placement != "" {
		if _, err := model.ParsePlacement(c.Display.Placement); err != nil {
			return err
		}
	}
	for name, d := range map[string]Duration{
		"low":      c.Timeouts.Low,
		"normal":   c.Timeouts.Normal,
		"critical": c.Timeouts.Critical,
	} {
		if d < 0 {
			return fmt.Errorf("timeouts.%s must not be negative, got %s", name, d.Duration())
		}
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	return nil
}

// HideAllMode returns the parsed hide-all mode.
func (c *DaemonConfig) HideAllMode() stack.HideAllMode {
	mode, _ := stack.ParseHideAllMode(c.Stack.HideAll)
	return mode
}

// StackConfig returns the manager configuration described by c.
func (c *DaemonConfig) StackConfig() stack.Config {
	return stack.Config{
		HideAll:      c.HideAllMode(),
		HistoryLimit: c.Stack.HistoryLimit,
	}
}

// TimeoutForUrgency returns the auto-dismiss timeout for the given urgency. Zero means never.
func (c *DaemonConfig) TimeoutForUrgency(u model.Urgency) time.Duration {
	switch u {
	case model.UrgencyLow:
		return c.Timeouts.Low.Duration()
	case model.UrgencyCritical:
		return c.Timeouts.Critical.Duration()
	default:
		return c.Timeouts.Normal.Duration()
	}
}

// SoundForUrgency returns the sound file path for the given urgency level.
// Expands ~ to the home directory.
func (c *DaemonConfig) SoundForUrgency(u model.Urgency) string {
	var path string
	switch u {
	case model.UrgencyLow:
		path = c.Audio.Sounds.Low
	case model.UrgencyCritical:
		path = c.Audio.Sounds.Critical
	default:
		path = c.Audio.Sounds.Normal
	}
	return expandPath(path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
