package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "compat.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "compat-cli/1.0", cfg.Catalog.UserAgent)
	assert.Equal(t, 30, cfg.Catalog.TimeoutSecs)
	assert.Equal(t, 3, cfg.Catalog.MaxRetries)
	assert.InDelta(t, 10, cfg.Catalog.RateLimitPerSec, 0.001)
	assert.Equal(t, 4, cfg.Extract.Workers)
	assert.InDelta(t, 0.95, cfg.Extract.SpecsBaseline, 0.001)
	assert.InDelta(t, 0.70, cfg.Extract.TitleBaseline, 0.001)
	assert.InDelta(t, 0.60, cfg.Extract.InferredBaseline, 0.001)
	assert.InDelta(t, 0.25, cfg.Extract.ConflictPenalty, 0.001)
	assert.InDelta(t, 0.10, cfg.Extract.CorroborationBoost, 0.001)
	assert.InDelta(t, 0.95, cfg.Extract.BoostCap, 0.001)
	assert.InDelta(t, 0.60, cfg.Extract.MatchThreshold, 0.001)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 50, cfg.Monitoring.LookbackRuns)
	assert.InDelta(t, 0.2, cfg.Monitoring.FailureRateThreshold, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/compat
log:
  level: debug
  format: console
server:
  port: 9090
extract:
  workers: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/compat", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Extract.Workers)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Catalog.MaxRetries)
	assert.InDelta(t, 0.95, cfg.Extract.SpecsBaseline, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COMPAT_STORE_DRIVER", "postgres")
	t.Setenv("COMPAT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COMPAT_SERVER_PORT", "3000")
	t.Setenv("COMPAT_CATALOG_BASE_URL", "http://catalog.internal:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "http://catalog.internal:9000", cfg.Catalog.BaseURL)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
