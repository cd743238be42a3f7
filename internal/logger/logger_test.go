package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		cfg := Config{
			Level:   "info",
			Console: true,
			Pretty:  false,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)

		if logger != nil {
			logger.Close()
		}
	})

	t.Run("create logger with file output", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "wayfarer.log")

		cfg := Config{
			Level:   "debug",
			File:    logFile,
			Console: false,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)

		// Write a log message
		logger.Info().Msg("test message")

		logger.Close()

		// Verify file was created
		_, err = os.Stat(logFile)
		assert.NoError(t, err)
	})

	t.Run("create logger with rotation", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "wayfarer.log")

		cfg := Config{
			Level:   "info",
			File:    logFile,
			MaxSize: 1,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		_, ok := logger.closer.(*RotatingWriter)
		assert.True(t, ok)

		logger.Close()
	})

	t.Run("create logger with redaction", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "wayfarer.log")

		cfg := Config{
			Level:     "info",
			File:      logFile,
			Console:   false,
			Redaction: true,
		}

		logger, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.NotNil(t, logger.redactor)

		logger.Close()
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "shouting", Console: true})
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetZerolog().GetLevel())
		logger.Close()
	})
}

func TestLoggerMethods(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "wayfarer.log")

	cfg := Config{
		Level:   "debug",
		File:    logFile,
		Console: false,
	}

	logger, err := New(cfg)
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug().Msg("debug message")
	logger.Info().Str("session_id", "abc").Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	child := logger.With().Str("component", "session").Logger()
	child.Info().Msg("child message")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug message")
	assert.Contains(t, string(data), `"session_id":"abc"`)
	assert.Contains(t, string(data), `"component":"session"`)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Redaction)
	assert.Greater(t, cfg.MaxSize, 0)
}
