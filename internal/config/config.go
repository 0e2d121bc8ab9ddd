// Package config loads skilltrace configuration from
// ~/.skilltrace/config.yaml with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all skilltrace configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Tracking TrackingConfig `mapstructure:"tracking" yaml:"tracking"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// StorageConfig locates the telemetry database.
type StorageConfig struct {
	// DataDir is the directory holding skilltrace.db
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// TrackingConfig controls session tracking behavior.
type TrackingConfig struct {
	// PersistentSessions backs the session map with the database so
	// open sessions survive a process restart
	PersistentSessions bool `mapstructure:"persistent_sessions" yaml:"persistent_sessions"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// File is an optional log file path; empty logs to stderr
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "~/.skilltrace",
		},
		Tracking: TrackingConfig{
			PersistentSessions: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the default location
// (~/.skilltrace/config.yaml) and merges with environment variables.
// If no config file exists, it creates one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".skilltrace", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges
// with environment variables. If the file doesn't exist, it creates one
// with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example override: SKILLTRACE_STORAGE_DATA_DIR
	v.SetEnvPrefix("SKILLTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// writeConfigFile serializes a config to YAML on disk.
func writeConfigFile(path string, cfg *Config) error {
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
