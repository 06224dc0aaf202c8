// Package config handles reading and writing the tomat config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml. Any field left out
// of the file keeps its default.
type Config struct {
	FocusMinutes      int      `yaml:"focus_minutes"`
	ShortBreakMinutes int      `yaml:"short_break_minutes"`
	LongBreakMinutes  int      `yaml:"long_break_minutes"`
	LongBreakInterval int      `yaml:"long_break_interval"`
	Languages         []string `yaml:"languages"`
	DataDir           string   `yaml:"data_dir"`
	TickMillis        int      `yaml:"tick_ms"`
	LogLevel          string   `yaml:"log_level"`
}

// Default returns a Config populated with conventional Pomodoro values:
// 25 minute focus, 5 minute short break, 15 minute long break every
// 4th cycle.
func Default() *Config {
	return &Config{
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		LongBreakInterval: 4,
		Languages:         []string{"python", "go", "java", "rust"},
		TickMillis:        250,
		LogLevel:          "info",
	}
}

// DefaultPath returns the standard config file location,
// ~/.config/tomat/config.yaml on Linux.
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "tomat", "config.yaml"), nil
}

// Load reads the config at path. A missing file yields the defaults;
// malformed YAML is an error. Zero-valued fields are filled from the
// defaults so partial configs work.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg.normalize()
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg.normalize()
}

// Write saves cfg to path, creating parent directories as needed.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) normalize() (*Config, error) {
	def := Default()
	if c.FocusMinutes <= 0 {
		c.FocusMinutes = def.FocusMinutes
	}
	if c.ShortBreakMinutes <= 0 {
		c.ShortBreakMinutes = def.ShortBreakMinutes
	}
	if c.LongBreakMinutes <= 0 {
		c.LongBreakMinutes = def.LongBreakMinutes
	}
	if c.LongBreakInterval <= 0 {
		c.LongBreakInterval = def.LongBreakInterval
	}
	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
	if c.TickMillis <= 0 {
		c.TickMillis = def.TickMillis
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data dir: %w", err)
		}
		c.DataDir = filepath.Join(dir, "tomat")
	}
	return c, nil
}

// Focus returns the configured focus interval length.
func (c *Config) Focus() time.Duration {
	return time.Duration(c.FocusMinutes) * time.Minute
}

// ShortBreak returns the configured short break length.
func (c *Config) ShortBreak() time.Duration {
	return time.Duration(c.ShortBreakMinutes) * time.Minute
}

// LongBreak returns the configured long break length.
func (c *Config) LongBreak() time.Duration {
	return time.Duration(c.LongBreakMinutes) * time.Minute
}

// Tick returns the render loop tick resolution.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

// SessionRoot returns the directory holding the partitioned session log.
func (c *Config) SessionRoot() string {
	return filepath.Join(c.DataDir, "sessions")
}

// LogFile returns the diagnostics log path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "tomat.log")
}
