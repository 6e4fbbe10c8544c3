package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the tracenav configuration.
type Config struct {
	// Database is the path to the results database produced by the analysis
	// pipeline (and by `tracenav ingest`).
	Database string `yaml:"database"`
	// Pager is the command used for paged listings, e.g. "less".
	Pager string `yaml:"pager"`
	// SourceRoot, when set, is prepended to filenames printed in traces so
	// locations are clickable from the terminal.
	SourceRoot string `yaml:"source_root"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: "tracenav.db",
		Pager:    "less",
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for tracenav.yaml in the current directory.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = "tracenav.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, err
	}

	defaults.Merge(&fileCfg)
	return defaults, nil
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "tracenav.yaml"))
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Database != "" {
		c.Database = other.Database
	}
	if other.Pager != "" {
		c.Pager = other.Pager
	}
	if other.SourceRoot != "" {
		c.SourceRoot = other.SourceRoot
	}
}
