package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Config holds all configuration for the wayfarer engine
type Config struct {
	// DataDir is the base directory for state databases, logs, and audit trails
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Store configures the session state persistence backend
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Session configures commit locking and cache eviction
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Executor configures the task worker pool
	Executor ExecutorConfig `json:"executor" mapstructure:"executor"`

	// Logging configures log output
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing configures OpenTelemetry span export
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// StoreConfig configures where session state is persisted
type StoreConfig struct {
	// Backend selects the store implementation: memory, sqlite, or redis
	Backend string `json:"backend" mapstructure:"backend"`

	// SQLite configures the sqlite backend
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`

	// Redis configures the redis backend
	Redis RedisConfig `json:"redis" mapstructure:"redis"`
}

// SQLiteConfig configures the sqlite state store
type SQLiteConfig struct {
	// Path is the database file location (defaults under DataDir)
	Path string `json:"path" mapstructure:"path"`
}

// RedisConfig configures the redis state store
type RedisConfig struct {
	// Address is the redis server in host:port form
	Address string `json:"address" mapstructure:"address"`

	// Password is the redis auth password (empty for none)
	Password string `json:"password" mapstructure:"password"`

	// DB is the redis database number
	DB int `json:"db" mapstructure:"db"`

	// KeyPrefix namespaces state keys in a shared redis
	KeyPrefix string `json:"key_prefix" mapstructure:"key_prefix"`

	// TTL expires persisted sessions after this many seconds (0 keeps them forever)
	TTL int `json:"ttl" mapstructure:"ttl"`
}

// SessionConfig configures commit locking and session cache eviction
type SessionConfig struct {
	// LockTimeoutMS bounds how long a commit waits for the session lock
	LockTimeoutMS int `json:"lock_timeout_ms" mapstructure:"lock_timeout_ms"`

	// CommitRetries is how many times the orchestrator retries a busy commit
	CommitRetries int `json:"commit_retries" mapstructure:"commit_retries"`

	// RetryBackoffMS is the delay between commit retries
	RetryBackoffMS int `json:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`

	// TemplatePath points to a JSON file overriding the built-in state template
	TemplatePath string `json:"template_path" mapstructure:"template_path"`

	// EvictAfterMin evicts cached sessions idle longer than this many minutes
	EvictAfterMin int `json:"evict_after_min" mapstructure:"evict_after_min"`

	// EvictSchedule is the cron schedule for the cache janitor
	EvictSchedule string `json:"evict_schedule" mapstructure:"evict_schedule"`
}

// ExecutorConfig configures the bounded task worker pool
type ExecutorConfig struct {
	// Workers caps how many tasks run concurrently
	Workers int `json:"workers" mapstructure:"workers"`

	// TaskTimeout bounds a single task execution in seconds
	TaskTimeout int `json:"task_timeout" mapstructure:"task_timeout"`

	// BatchTimeout bounds a whole iteration in seconds
	BatchTimeout int `json:"batch_timeout" mapstructure:"batch_timeout"`

	// MaxRetries is how many times a failed task is retried
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// RetryBackoffMS is the delay between task retries
	RetryBackoffMS int `json:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`

	// CacheSize is the number of tool results kept in the LRU cache (0 disables)
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error
	Level string `json:"level" mapstructure:"level"`

	// File is the log file path (empty logs to console only)
	File string `json:"file" mapstructure:"file"`

	// Console mirrors logs to stderr
	Console bool `json:"console" mapstructure:"console"`

	// Pretty enables human-readable console output
	Pretty bool `json:"pretty" mapstructure:"pretty"`

	// Redaction masks traveler documents and credentials in log output
	Redaction bool `json:"redaction" mapstructure:"redaction"`

	// MaxSize rotates the log file after this many megabytes (0 disables rotation)
	MaxSize int `json:"max_size" mapstructure:"max_size"`

	// MaxAge prunes rotated files older than this many days
	MaxAge int `json:"max_age" mapstructure:"max_age"`

	// Compress gzips rotated files
	Compress bool `json:"compress" mapstructure:"compress"`

	// AuditFile is the JSONL audit trail path (empty disables auditing)
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// TracingConfig configures OpenTelemetry span export
type TracingConfig struct {
	// Enabled turns span export on
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName identifies this process in traces
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// MetricsConfig configures the Prometheus scrape endpoint
type MetricsConfig struct {
	// Enabled starts the metrics listener
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Address is the listen address for /metrics
	Address string `json:"address" mapstructure:"address"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "",
		Store: StoreConfig{
			Backend: "memory",
			SQLite:  SQLiteConfig{},
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "wayfarer:",
			},
		},
		Session: SessionConfig{
			LockTimeoutMS:  2000,
			CommitRetries:  3,
			RetryBackoffMS: 100,
			EvictAfterMin:  60,
			EvictSchedule:  "*/10 * * * *",
		},
		Executor: ExecutorConfig{
			Workers:        10,
			TaskTimeout:    30,
			BatchTimeout:   120,
			MaxRetries:     3,
			RetryBackoffMS: 500,
			CacheSize:      256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
			MaxSize:   50,
			MaxAge:    14,
			Compress:  true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "wayfarer",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
	}
}

// String returns a pretty-printed JSON representation of the config
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateBackend(c.Store.Backend); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Store.Backend == "sqlite" && c.Store.SQLite.Path == "" && c.DataDir == "" {
		return fmt.Errorf("store: sqlite backend requires a path or data_dir")
	}
	if c.Store.Backend == "redis" {
		if err := v.ValidateAddress(c.Store.Redis.Address); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if c.Store.Redis.TTL < 0 {
		return fmt.Errorf("store: redis ttl cannot be negative")
	}

	if c.Session.LockTimeoutMS <= 0 {
		return fmt.Errorf("session: lock_timeout_ms must be positive")
	}
	if c.Session.CommitRetries < 0 {
		return fmt.Errorf("session: commit_retries cannot be negative")
	}
	if c.Session.EvictSchedule != "" {
		if err := v.ValidateCronSchedule(c.Session.EvictSchedule); err != nil {
			return fmt.Errorf("session: %w", err)
		}
	}

	if c.Executor.Workers < 1 {
		return fmt.Errorf("executor: workers must be at least 1")
	}
	if c.Executor.TaskTimeout <= 0 {
		return fmt.Errorf("executor: task_timeout must be positive")
	}
	if c.Executor.BatchTimeout < c.Executor.TaskTimeout {
		return fmt.Errorf("executor: batch_timeout must be at least task_timeout")
	}
	if c.Executor.MaxRetries < 0 {
		return fmt.Errorf("executor: max_retries cannot be negative")
	}
	if c.Executor.CacheSize < 0 {
		return fmt.Errorf("executor: cache_size cannot be negative")
	}

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Logging.MaxSize < 0 || c.Logging.MaxAge < 0 {
		return fmt.Errorf("logging: max_size and max_age cannot be negative")
	}

	if c.Metrics.Enabled {
		if err := v.ValidateAddress(c.Metrics.Address); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}

// SQLitePath resolves the sqlite database location, falling back under DataDir
func (c *Config) SQLitePath() string {
	if c.Store.SQLite.Path != "" {
		return c.Store.SQLite.Path
	}
	return filepath.Join(c.DataDir, "state.db")
}
