// Package config provides unified YAML-file-plus-environment-variable
// configuration loading, grounded on _examples/BaSui01-agentflow/config/loader.go's Loader
// builder (default → YAML → env precedence, reflection-based env
// overrides) and _examples/BaSui01-agentflow/config/defaults.go's DefaultConfig shape,
// narrowed to this module's domain surface: the server, the LLM client, the
// store backend, logging, telemetry, and the session defaults spec.md §6
// describes.
package config

import "time"

// Config is roundtable's complete configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Session   SessionConfig   `yaml:"session" env:"SESSION"`
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Retention RetentionConfig `yaml:"retention" env:"RETENTION"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds settings for a metrics/health HTTP listener. The
// loader fills them in, but no code in this module starts such a listener.
type ServerConfig struct {
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// SessionConfig holds the default session tuning surface spec.md §6
// defines; a Start request overrides any of these per session.
type SessionConfig struct {
	MaxIterations      int     `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	NumParticipants    int     `yaml:"num_participants" env:"NUM_PARTICIPANTS"`
	DeltaThreshold     float64 `yaml:"delta_threshold" env:"DELTA_THRESHOLD"`
	StopOnNoHighIssues bool    `yaml:"stop_on_no_high_issues" env:"STOP_ON_NO_HIGH_ISSUES"`
	ForceMaxIterations bool    `yaml:"force_max_iterations" env:"FORCE_MAX_ITERATIONS"`
	ModelStrategy      string  `yaml:"model_strategy" env:"MODEL_STRATEGY"`
	Model              string  `yaml:"model" env:"MODEL"`
}

// LLMConfig configures the single external LLM dependency spec.md §1 scopes
// this module to.
type LLMConfig struct {
	DefaultProvider string        `yaml:"default_provider" env:"DEFAULT_PROVIDER"`
	APIKey          string        `yaml:"api_key" env:"API_KEY"`
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries      int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is one of "memory", "file", "sql".
	Backend string `yaml:"backend" env:"BACKEND"`
	// Path is the FileStore base directory or the SQLStore DSN, depending
	// on Backend.
	Path string `yaml:"path" env:"PATH"`
}

// RetentionConfig configures the cron-scheduled cleanup of terminal
// sessions older than MaxAge.
type RetentionConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Schedule string        `yaml:"schedule" env:"SCHEDULE"`
	MaxAge   time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig controls the Prometheus metrics namespace; the
// OpenTelemetry TracerProvider itself is configured by whatever the host
// process registers globally before startup.
type TelemetryConfig struct {
	Enabled          bool   `yaml:"enabled" env:"ENABLED"`
	MetricsNamespace string `yaml:"metrics_namespace" env:"METRICS_NAMESPACE"`
	SampleRate       float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}
