// Package config provides configuration management for scopekit.
//
// Config file locations (priority order):
//  1. $SCOPEKIT_CONFIG
//  2. ./scopekit.yaml
//  3. $XDG_CONFIG_HOME/scopekit/config.yaml
//  4. ~/.config/scopekit/config.yaml
//  5. /etc/scopekit/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultDatabasePath = "./scopekit.db"
	defaultFormat       = "yaml"
	defaultIndent       = 2
	maxIndent           = 8
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	skip := true
	return &Config{
		Version:   1,
		Database:  DatabaseConfig{Path: defaultDatabasePath},
		Export:    ExportConfig{Format: defaultFormat, Indent: defaultIndent},
		Snapshots: SnapshotsConfig{SkipUnchanged: &skip},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Export.Format == "" {
		c.Export.Format = defaultFormat
	}
	if c.Export.Format == "yml" {
		c.Export.Format = "yaml"
	}
	if c.Export.Indent == 0 {
		c.Export.Indent = defaultIndent
	}
	if c.Snapshots.SkipUnchanged == nil {
		skip := true
		c.Snapshots.SkipUnchanged = &skip
	}
}

// Validate reports the first setting outside its allowed range
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "yaml", "json":
	default:
		return fmt.Errorf("export.format %q: want yaml or json", c.Export.Format)
	}
	if c.Export.Indent < 1 || c.Export.Indent > maxIndent {
		return fmt.Errorf("export.indent %d: want 1 to %d", c.Export.Indent, maxIndent)
	}
	if c.Snapshots.Timeout < 0 {
		return fmt.Errorf("snapshots.timeout %s: must not be negative", c.Snapshots.Timeout.Duration())
	}
	return nil
}

// SkipUnchanged reports whether saving an unchanged tree is skipped
func (c *Config) SkipUnchanged() bool {
	return c.Snapshots.SkipUnchanged == nil || *c.Snapshots.SkipUnchanged
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Database: %s\n", c.Database.Path)
	summary += fmt.Sprintf("Export: %s (indent %d)\n", c.Export.Format, c.Export.Indent)
	summary += fmt.Sprintf("Snapshots: skip unchanged %t", c.SkipUnchanged())
	if c.Snapshots.Timeout > 0 {
		summary += fmt.Sprintf(", timeout %s", c.Snapshots.Timeout.Duration())
	}
	return summary
}
