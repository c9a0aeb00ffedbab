package config

import (
	"strings"
	"time"

	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/telemetry"
)

// DefaultConfig returns a complete configuration with every field at its
// default value, used when no config file is found.
func DefaultConfig() Config {
	cfg := Config{DataDir: "./data"}
	ApplyDefaults(&cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields after a partial config file or
// environment override has been decoded.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyProfilingDefaults(&cfg.Profiling)
	applyServerDefaults(&cfg.Server)
	applySessionDefaults(&cfg.Session)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
}

func applyLoggingDefaults(cfg *logger.Config) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *telemetry.Config) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tracebroker"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyProfilingDefaults(cfg *telemetry.ProfilingConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tracebroker"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "inuse_objects", "goroutines"}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenDefaultPort == 0 {
		cfg.ListenDefaultPort = 4026
	}
	if cfg.CommandChannelCapacity == 0 {
		cfg.CommandChannelCapacity = 4
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applySessionDefaults(cfg *SessionDefaultsConfig) {
	if cfg.MaxFDCount == 0 {
		cfg.MaxFDCount = 2
	}
	if cfg.Inheritance == nil {
		enabled := true
		cfg.Inheritance = &enabled
	}
	if cfg.RefreshIntervalMS == 0 {
		cfg.RefreshIntervalMS = 500
	}
	if cfg.ConnectRetries < 0 {
		cfg.ConnectRetries = 0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}
