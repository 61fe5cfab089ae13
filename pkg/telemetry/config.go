package telemetry

import "time"

// Config is the telemetry configuration for one engine process.
type Config struct {
	// ServiceName identifies the service in logs, metrics and traces.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Tracing configures the OpenTelemetry tracer.
	Tracing TracingConfig

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string

	// Format is console or json.
	Format string

	// Output is stdout or stderr.
	Output string
}

// TracingConfig configures the tracer.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool

	// Exporter is stdout or otlp.
	Exporter string

	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64

	// ExportTimeout bounds batch export.
	ExportTimeout time.Duration
}

// MetricsConfig configures the Prometheus registry and listener.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	Enabled bool

	// ListenAddress is the optional /metrics listener address; empty
	// disables the listener while still collecting.
	ListenAddress string

	// Namespace is the metric name prefix.
	Namespace string
}

// DefaultConfig returns the defaults for a CLI run.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "cloudweave",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "stdout",
			SamplingRate:  1.0,
			ExportTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "cloudweave",
		},
	}
}
