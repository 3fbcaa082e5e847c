package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(15*1024*1024), cfg.Normalizer.MaxUploadBytes)
	assert.Equal(t, int64(1024*1024), cfg.Normalizer.ResizeThresholdBytes)
	assert.Equal(t, 1024, cfg.Normalizer.MaxWidth)
	assert.Equal(t, 1024, cfg.Normalizer.MaxHeight)
	assert.InDelta(t, 0.8, cfg.Normalizer.Quality, 1e-9)
	assert.Equal(t, int64(50_000_000), cfg.Normalizer.MaxPixels)
	assert.Equal(t, "interaction-responses", cfg.Events.Topic)
	assert.Zero(t, cfg.Events.MemoryBuffer)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoadConfigFile_FileValues(t *testing.T) {
	body := `
logger:
  env: production
  level: debug
  file_path: /tmp/capture.log
normalizer:
  max_width: 800
  quality: 0.6
events:
  kafka_brokers: ["k1:9092", "k2:9092"]
storage:
  endpoint: minio:9000
  bucket: uploads
`
	cfg, err := LoadConfigFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Logger.Env)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/tmp/capture.log", cfg.Logger.FilePath)
	assert.Equal(t, 800, cfg.Normalizer.MaxWidth)
	assert.InDelta(t, 0.6, cfg.Normalizer.Quality, 1e-9)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "uploads", cfg.Storage.Bucket)
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	t.Setenv("SLIDE_CAPTURE_NORMALIZER_MAX_HEIGHT", "512")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "a:1,b:2")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfigFile(writeConfig(t, "redis:\n  address: localhost:6379\n"))
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Normalizer.MaxHeight)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("CONFIG_PATH", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}
