// Package config loads the messenger configuration from an optional YAML
// file, applying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds the embedder-facing settings.
type Config struct {
	// DataDir is the directory for the durable store.
	DataDir string `yaml:"dataDir"`
	// LogLevel is a logrus level name: debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:  filepath.Join(".", "saxiib-data"),
		LogLevel: "info",
	}
}

// Load reads the YAML file at path. A missing file is not an error; the
// defaults are returned. A present but unreadable or malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}

	return cfg, nil
}
