package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestNew_Console(t *testing.T) {
	logger, closer, err := New(Config{Level: "debug", Dev: true})
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizeadvisor.log")

	logger, closer, err := New(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	logger.Warn("table issue", zap.Int("row", 4))
	_ = logger.Sync()
	require.NoError(t, closer.Close())

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"table issue"`)
	assert.Contains(t, string(data), `"row":4`)
}
