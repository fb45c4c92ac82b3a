package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1024, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1024, cfg.CacheMaxItems)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("ATP_DATA_DIR", "/tmp/test-atp")
	os.Setenv("ATP_CACHE_MAX_ITEMS", "500")
	os.Setenv("ATP_CACHE_TTL", "12h")
	os.Setenv("ATP_LOG_LEVEL", "debug")
	os.Setenv("ATP_LOG_FORMAT", "text")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-atp", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("ATP_CACHE_MAX_ITEMS", "not-a-number")
	os.Setenv("ATP_CACHE_TTL", "soon")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 1024, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestLiteConfig_VerdictDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.atp-triage"}

	path := cfg.VerdictDBPath()

	assert.Equal(t, "/home/user/.atp-triage/verdicts.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.atp-triage"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.atp-triage/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "atp")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"ATP_DATA_DIR",
		"ATP_CACHE_MAX_ITEMS",
		"ATP_CACHE_TTL",
		"ATP_LOG_LEVEL",
		"ATP_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
