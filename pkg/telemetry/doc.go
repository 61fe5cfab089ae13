// Package telemetry provides the observability stack of the cloudweave
// engine: zerolog structured logging, Prometheus metrics and an
// OpenTelemetry tracer with stdout and OTLP gRPC exporters. Disabled
// components degrade to no-ops so the engine never branches on telemetry
// configuration.
package telemetry
