package logger

import (
	"os"
	"path/filepath"
	"testing"

	"slide-capture/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_BeforeInitialize(t *testing.T) {
	Set(nil)
	require.NotNil(t, Get())
	Get().Info("discarded")
}

func TestInitialize_FileOutput(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "capture.log")

	err := Initialize(config.LoggerConfig{Env: "production", Level: "debug", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	Get().Debug("Recorder: response accepted", zap.String("interaction_id", "q1"))
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"interaction_id":"q1"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestInitialize_BadLevel(t *testing.T) {
	err := Initialize(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestSet_Observer(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	core, logs := observer.New(zap.WarnLevel)
	Set(zap.New(core))

	Get().Info("ignored")
	Get().Warn("kept")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}
