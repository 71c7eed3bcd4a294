package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "SCOPEKIT_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "scopekit.yaml"
	// ConfigDirName is the directory under the user and system config roots
	ConfigDirName = "scopekit"
)

// SearchPath is one place Load looks for a config file
type SearchPath struct {
	Path   string
	Origin string // env, workdir, xdg, home, system
}

// SearchPaths lists the config locations in priority order. Locations whose
// environment variable is unset are left out.
func SearchPaths() []SearchPath {
	var paths []SearchPath
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, SearchPath{p, "env"})
	}
	paths = append(paths, SearchPath{ConfigFileName, "workdir"})
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, SearchPath{filepath.Join(xdg, ConfigDirName, "config.yaml"), "xdg"})
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, SearchPath{filepath.Join(home, ".config", ConfigDirName, "config.yaml"), "home"})
	}
	return append(paths, SearchPath{filepath.Join("/etc", ConfigDirName, "config.yaml"), "system"})
}

// FindConfigPath returns the absolute path of the first existing config
// file in SearchPaths, or "" when there is none
func FindConfigPath() string {
	for _, sp := range SearchPaths() {
		if !fileExists(sp.Path) {
			continue
		}
		if abs, err := filepath.Abs(sp.Path); err == nil {
			return abs
		}
		return sp.Path
	}
	return ""
}

// DefaultConfigPath is where `scopectl config -init -` writes: the first
// user location in SearchPaths, else the working directory
func DefaultConfigPath() string {
	for _, sp := range SearchPaths() {
		if sp.Origin == "xdg" || sp.Origin == "home" {
			return sp.Path
		}
	}
	return ConfigFileName
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
