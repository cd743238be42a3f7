package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Address)
	assert.Equal(t, "wayfarer:", cfg.Store.Redis.KeyPrefix)
	assert.Equal(t, 2000, cfg.Session.LockTimeoutMS)
	assert.Equal(t, 3, cfg.Session.CommitRetries)
	assert.Equal(t, "*/10 * * * *", cfg.Session.EvictSchedule)
	assert.Equal(t, 10, cfg.Executor.Workers)
	assert.Equal(t, 30, cfg.Executor.TaskTimeout)
	assert.Equal(t, 120, cfg.Executor.BatchTimeout)
	assert.Equal(t, 3, cfg.Executor.MaxRetries)
	assert.Equal(t, 500, cfg.Executor.RetryBackoffMS)
	assert.Equal(t, 256, cfg.Executor.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "wayfarer", cfg.Tracing.ServiceName)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid default config", func(t *testing.T) {
		cfg := DefaultConfig()

		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Backend = "postgres"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown store backend")
	})

	t.Run("sqlite without path or data dir", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Backend = "sqlite"
		cfg.Store.SQLite.Path = ""
		cfg.DataDir = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sqlite backend requires")
	})

	t.Run("sqlite with data dir", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Backend = "sqlite"
		cfg.DataDir = t.TempDir()

		err := cfg.Validate()
		assert.NoError(t, err)
	})

	t.Run("redis without address", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Backend = "redis"
		cfg.Store.Redis.Address = ""

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "address cannot be empty")
	})

	t.Run("negative redis ttl", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Redis.TTL = -1

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ttl cannot be negative")
	})

	t.Run("zero lock timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Session.LockTimeoutMS = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "lock_timeout_ms")
	})

	t.Run("invalid evict schedule", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Session.EvictSchedule = "every ten minutes"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cron schedule")
	})

	t.Run("zero workers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.Workers = 0

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "workers must be at least 1")
	})

	t.Run("batch timeout below task timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.TaskTimeout = 60
		cfg.Executor.BatchTimeout = 30

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "batch_timeout")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown log level")
	})

	t.Run("metrics enabled without port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = "localhost"

		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "metrics")
	})
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Redis.Password = "hunter2"

	str := cfg.String()
	assert.NotEmpty(t, str)
	assert.Contains(t, str, "store")
	assert.Contains(t, str, "executor")
}

func TestConfigSQLitePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/wayfarer"

	assert.Equal(t, filepath.Join("/var/lib/wayfarer", "state.db"), cfg.SQLitePath())

	cfg.Store.SQLite.Path = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", cfg.SQLitePath())
}
