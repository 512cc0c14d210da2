package canvas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full gaban service configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	DBPath  string        `yaml:"db_path"`
	Canvas  CanvasConfig  `yaml:"canvas"`
	History HistoryConfig `yaml:"history"`
}

// CanvasConfig controls default-canvas creation.
type CanvasConfig struct {
	DefaultWidth  int `yaml:"default_width"`
	DefaultHeight int `yaml:"default_height"`
}

// HistoryConfig controls the optional edit-history retention sweep.
// RetentionDays 0 keeps history forever (the default: the log is an
// unbounded audit trail).
type HistoryConfig struct {
	RetentionDays        int `yaml:"retention_days"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.DBPath == "" {
		c.DBPath = "gaban.db"
	}
	if c.Canvas.DefaultWidth <= 0 {
		c.Canvas.DefaultWidth = DefaultWidth
	}
	if c.Canvas.DefaultHeight <= 0 {
		c.Canvas.DefaultHeight = DefaultHeight
	}
	if c.History.SweepIntervalMinutes <= 0 {
		c.History.SweepIntervalMinutes = 60
	}
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Canvas.DefaultWidth <= 0 || c.Canvas.DefaultHeight <= 0 {
		return fmt.Errorf("canvas default size must be positive")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0")
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfig reads and parses a YAML config file, merged over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, cfg.Validate()
}
