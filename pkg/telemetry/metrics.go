package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics collects Prometheus metrics for orchestration runs. A disabled
// instance is a no-op so call sites never branch.
type Metrics struct {
	config MetricsConfig

	cellsTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	activeRuns    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		cellsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cells_total",
				Help:      "Total number of matrix cells processed",
			},
			[]string{"cloud", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of lifecycle stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of orchestration runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of orchestration runs in seconds",
				Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"status"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "active_runs",
				Help:      "Number of orchestration runs in progress",
			},
		),
	}

	registry.MustRegister(
		m.cellsTotal,
		m.stageDuration,
		m.runsCompleted,
		m.runDuration,
		m.activeRuns,
	)

	return m
}

// RunStarted marks a run in progress.
func (m *Metrics) RunStarted() {
	if m.registry == nil {
		return
	}
	m.activeRuns.Inc()
}

// RunCompleted records a finished run.
func (m *Metrics) RunCompleted(status string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordCell records one cell outcome.
func (m *Metrics) RecordCell(cloud, status string) {
	if m.registry == nil {
		return
	}
	m.cellsTotal.WithLabelValues(cloud, status).Inc()
}

// ObserveStage records one lifecycle stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler returns the scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve runs the /metrics listener until the context is cancelled. No-op
// when no listen address is configured.
func (m *Metrics) Serve(ctx context.Context, logger zerolog.Logger) error {
	if m.registry == nil || m.config.ListenAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: m.config.ListenAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("address", m.config.ListenAddress).Msg("Metrics listener started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
