package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "colstore.db", cfg.Database.Path)
	assert.Equal(t, "WAL", cfg.Database.JournalMode)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 10000, cfg.Embedding.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  backend: sqlite
  path: /tmp/app.db
  busy_timeout_ms: 2500
embedding:
  provider: local
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/app.db", cfg.Database.Path)
	assert.Equal(t, 2500, cfg.Database.BusyTimeoutMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "NORMAL", cfg.Database.Synchronous, "unset fields still get defaults")
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-from-env")
	path := writeConfig(t, `
embedding:
  provider: openai
  api_key: ${TEST_API_KEY}
  model: ${TEST_MODEL:-text-embedding-3-small}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model, "unset var uses the :- default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Database.Backend = "mysql" }, "database.backend"},
		{"remote needs socket", func(c *Config) { c.Database.Backend = "remote" }, "socket_path"},
		{"openai needs key", func(c *Config) { c.Embedding.Provider = "openai" }, "api_key"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildLogger(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	log, err := cfg.BuildLogger()
	require.NoError(t, err)
	require.NotNil(t, log)
	_ = log.Sync()
}
