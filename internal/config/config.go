// Package config loads passage settings from a YAML file, with defaults and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds passage settings.
type Config struct {
	DBPath       string `yaml:"db_path"`
	Story        string `yaml:"story"`         // default story file
	Seed         string `yaml:"seed"`          // empty means a fresh seed per session
	LogLevel     string `yaml:"log_level"`     // debug | info | warn | error
	AutosaveKey  string `yaml:"autosave_key"`  // kv key prefix the timeline is mirrored under
	MaxRedirects int    `yaml:"max_redirects"` // goto chain limit per turn
	Listen       string `yaml:"listen"`        // serve address
	SaveTTL      string `yaml:"save_ttl"`      // e.g. "30d"; empty keeps saves forever
}

// Default returns the settings used when no file is given.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		home, _ := os.UserHomeDir()
		c.DBPath = filepath.Join(home, ".passage", "passage.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.AutosaveKey == "" {
		c.AutosaveKey = "passage"
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 50
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
}

// LoadFile reads a YAML config file. Unset fields get defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.defaults()
	return &c, c.Validate()
}

// Load reads path, or the file named by $PASSAGE_CONFIG when path is empty,
// falling back to defaults when neither is given and ~/.passage/config.yaml
// doesn't exist. $PASSAGE_DB overrides the database path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PASSAGE_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".passage", "config.yaml")
	}

	c, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		c, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if env := os.Getenv("PASSAGE_DB"); env != "" {
		c.DBPath = env
	}
	return c, nil
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRedirects <= 0 {
		return fmt.Errorf("max_redirects must be > 0")
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q (use debug, info, warn or error)", s)
	}
	return l, nil
}
