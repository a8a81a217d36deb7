// Package config loads localstore configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all localstore configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Storage engine settings
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures the storage engine.
type StorageConfig struct {
	// Root directory holding the record files. Created on acquisition.
	Root string `yaml:"root"`

	// SuppressionTTL bounds how long a self-write token waits for its
	// watch event before it is discarded (e.g. "5s"). Some platforms
	// coalesce events, so tokens cannot be kept forever.
	SuppressionTTL string `yaml:"suppression_ttl"`

	// SweepStaleTemp removes leftover temporary files found at startup.
	SweepStaleTemp bool `yaml:"sweep_stale_temp"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Name:    "localstore",
		Version: "1.0.0",
		Storage: StorageConfig{
			Root:           ".localstore",
			SuppressionTTL: "5s",
			SweepStaleTemp: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file, falling back to defaults for missing
// fields, then applies environment overrides. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments redirect the store root
// and log level without editing the config file.
func applyEnvOverrides(cfg *Config) {
	if root := os.Getenv("LOCALSTORE_ROOT"); root != "" {
		cfg.Storage.Root = root
	}
	if level := os.Getenv("LOCALSTORE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// SuppressionWindow parses the configured TTL, falling back to 5s on
// empty or malformed values.
func (c *StorageConfig) SuppressionWindow() time.Duration {
	d, err := time.ParseDuration(c.SuppressionTTL)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
