package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "static", cfg.Extractor.Provider)
	assert.Equal(t, 24*time.Hour, cfg.Sessions.MaxIdle)
	assert.False(t, cfg.Redis.Enable)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caremesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
log:
  level: debug
redis:
  enable: true
  addr: "redis:6379"
extractor:
  provider: anthropic
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Redis.Enable)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "anthropic", cfg.Extractor.Provider)
}

func TestLoad_BadFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caremesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
