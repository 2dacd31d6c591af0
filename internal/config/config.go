// Package config loads the engine's YAML configuration with ${VAR}
// environment expansion and builds the process logger from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the colstore configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds the default handle's connection settings
type DatabaseConfig struct {
	Backend       string `yaml:"backend"` // sqlite, remote (default: sqlite)
	Path          string `yaml:"path"`
	SocketPath    string `yaml:"socket_path"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
	CacheSizeKB   int    `yaml:"cache_size_kb"`
	Synchronous   string `yaml:"synchronous"`
	JournalMode   string `yaml:"journal_mode"`
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, local (default: local)
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// Load reads configuration from a YAML file. An empty path returns the
// defaults without touching the filesystem.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values
func (c *Config) ApplyDefaults() {
	if c.Database.Backend == "" {
		c.Database.Backend = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "colstore.db"
	}
	if c.Database.BusyTimeoutMs <= 0 {
		c.Database.BusyTimeoutMs = 5000
	}
	if c.Database.CacheSizeKB <= 0 {
		c.Database.CacheSizeKB = 8192
	}
	if c.Database.Synchronous == "" {
		c.Database.Synchronous = "NORMAL"
	}
	if c.Database.JournalMode == "" {
		c.Database.JournalMode = "WAL"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 10000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case "remote":
		if c.Database.SocketPath == "" {
			return fmt.Errorf("database.socket_path is required for the remote backend")
		}
	default:
		return fmt.Errorf("database.backend must be \"sqlite\" or \"remote\", got %q", c.Database.Backend)
	}

	switch c.Embedding.Provider {
	case "local":
	case "openai":
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// BuildLogger constructs the process logger from the logging section
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
