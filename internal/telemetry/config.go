package telemetry

// Config holds OpenTelemetry configuration
type Config struct {
	// Enabled indicates whether tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName is the name of the service reported to the trace backend
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// ServiceVersion is the version of the service
	ServiceVersion string `mapstructure:"service_version" yaml:"service_version"`

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317")
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure indicates whether to use insecure connection (no TLS)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	// 1.0 means sample all traces, 0.5 means sample 50%
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "tracebroker",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
