package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NEXTPM_ADDR", "")
	t.Setenv("NEXTPM_WATCH_DEBOUNCE_MS", "not-a-number")
	cfg := Load()
	assert.Equal(t, ":8002", cfg.Addr)
	assert.Equal(t, "project/specs", cfg.SpecsDir)
	assert.Equal(t, "site", cfg.OutDir)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NEXTPM_ADDR", ":9000")
	t.Setenv("NEXTPM_WATCH_DEBOUNCE_MS", "250")
	t.Setenv("BASIC_AUTH_USERS", `{"kang":"x"}`)
	cfg := Load()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce())
	assert.Equal(t, `{"kang":"x"}`, cfg.BasicAuthUsers)
}

func TestLoadWithFileOverlay(t *testing.T) {
	t.Setenv("NEXTPM_ADDR", ":9000")
	t.Setenv("NEXTPM_OUT_DIR", "public")
	path := filepath.Join(t.TempDir(), "nextpm.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // local overrides
  "addr": ":7000",
  "specs_dir": "docs/specs", /* moved */
  "watch_debounce_ms": 100,
}`), 0o644))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "docs/specs", cfg.SpecsDir)
	assert.Equal(t, "public", cfg.OutDir)
	assert.Equal(t, 100*time.Millisecond, cfg.WatchDebounce())
}

func TestLoadWithFileErrors(t *testing.T) {
	_, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": }`), 0o644))
	_, err = LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nextpm.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0o644))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
