package logger_test

import (
	"testing"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Run("Should map known names and fall back to info", func(t *testing.T) {
		assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("DEBUG"))
		assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel(" warning "))
		assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("error"))
		assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("verbose"))
	})
}

func TestNew(t *testing.T) {
	t.Run("Should honour the configured level", func(t *testing.T) {
		log, err := logger.New(logger.WithLevel("warn"), logger.WithFields(map[string]any{"service": "floor"}))
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("Should keep the level in development mode", func(t *testing.T) {
		log, err := logger.New(logger.WithLevel("error"), logger.WithDevelopment(true))
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
		assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
	})
}
