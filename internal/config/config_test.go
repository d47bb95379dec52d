package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sales-insights/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"CONFIG_FILE", "PORT", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_PATH", "EXPORT_DIR", "REDIS_URL", "FORECAST_TIMEOUT", "CACHE_TTL", "MAX_UPLOAD_MB"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
log_level: debug
forecast_timeout: 5s
max_upload_mb: 8
resolver:
  Sales:
    keywords: [turnover, sales]
    threshold: 0.7
`), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("FORECAST_TIMEOUT", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.ForecastTimeout)
	assert.EqualValues(t, 8, cfg.MaxUploadMB)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, []string{"turnover", "sales"}, cfg.Resolver[model.FieldSales].Keywords)
	assert.Equal(t, 0.7, cfg.Resolver[model.FieldSales].Threshold)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXPORT_DIR=/tmp/out\nMAX_UPLOAD_MB=abc\n"), 0644))
	t.Setenv("CONFIG_FILE", "")
	// godotenv never overrides variables that are already set, so unset them.
	os.Unsetenv("EXPORT_DIR")
	os.Unsetenv("MAX_UPLOAD_MB")
	t.Cleanup(func() {
		os.Unsetenv("EXPORT_DIR")
		os.Unsetenv("MAX_UPLOAD_MB")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.ExportDir)
	assert.EqualValues(t, 32, cfg.MaxUploadMB, "invalid value ignored")
}

func TestLoad_BadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [oops"), 0644))
	t.Setenv("CONFIG_FILE", bad)
	_, err = Load()
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	(&Config{LogLevel: "debug"}).SetupLogging()
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	(&Config{LogLevel: "nonsense"}).SetupLogging()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
