package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Export    ExportConfig    `yaml:"export"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
}

// DatabaseConfig locates the snapshot database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig controls how trees are encoded
type ExportConfig struct {
	Format string `yaml:"format"` // yaml, json
	Indent int    `yaml:"indent"` // spaces per nesting level
}

// SnapshotsConfig controls snapshot persistence
type SnapshotsConfig struct {
	SkipUnchanged *bool    `yaml:"skip_unchanged,omitempty"` // nil = true
	Timeout       Duration `yaml:"timeout,omitempty"`        // per repository call, 0 = none
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
