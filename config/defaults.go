package config

import "time"

// DefaultConfig returns roundtable's default configuration, matching
// spec.md §5/§6's recommended, non-normative defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Session:   DefaultSessionConfig(),
		LLM:       DefaultLLMConfig(),
		Store:     DefaultStoreConfig(),
		Retention: DefaultRetentionConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MetricsPort:     9091,
		ShutdownTimeout: 15 * time.Second,
	}
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:      3,
		NumParticipants:    3,
		DeltaThreshold:     0.05,
		StopOnNoHighIssues: true,
		ForceMaxIterations: false,
		ModelStrategy:      "uniform",
		Model:              "gpt-4",
	}
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultProvider: "openai",
		Timeout:         2 * time.Minute,
		MaxRetries:      3,
	}
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend: "memory",
	}
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Enabled:  false,
		Schedule: "0 3 * * *",
		MaxAge:   30 * 24 * time.Hour,
	}
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:          false,
		MetricsNamespace: "roundtable",
		SampleRate:       0.1,
	}
}
