package commands

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cloudweave/cloudweave/pkg/artifacts"
	"github.com/cloudweave/cloudweave/pkg/config"
	"github.com/cloudweave/cloudweave/pkg/engine"
	"github.com/cloudweave/cloudweave/pkg/policy"
	"github.com/cloudweave/cloudweave/pkg/stores"
	"github.com/cloudweave/cloudweave/pkg/telemetry"
	"github.com/cloudweave/cloudweave/pkg/terraform"
)

// runFlags are the options shared by plan, apply and destroy.
type runFlags struct {
	environment string
	clouds      []string
	modules     []string
	root        string
	policyDir   string
	noPolicy    bool
	historyDB   string
	noHistory   bool
	trace       bool
	traceTarget string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.environment, "environment", "e", "", "target environment (required)")
	cmd.Flags().StringSliceVarP(&f.clouds, "cloud", "c", nil, "restrict the run to these clouds")
	cmd.Flags().StringSliceVarP(&f.modules, "module", "m", nil, "restrict the run to these modules")
	cmd.Flags().StringVar(&f.root, "root", ".", "root directory of the module tree")
	cmd.Flags().StringVar(&f.policyDir, "policy-dir", "", "directory of extra .rego policies")
	cmd.Flags().BoolVar(&f.noPolicy, "no-policy", false, "disable the policy gate")
	cmd.Flags().StringVar(&f.historyDB, "history-db", filepath.Join(".weave", "history.db"), "run history database path")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record run history")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "emit trace spans")
	cmd.Flags().StringVar(&f.traceTarget, "trace-endpoint", "", "OTLP gRPC endpoint (stdout exporter when empty)")
	_ = cmd.MarkFlagRequired("environment")
}

// runAction is the shared execution path for the lifecycle commands. The
// returned error is non-nil when the run must exit non-zero.
func runAction(ctx context.Context, action engine.Action, flags *runFlags) error {
	logger := buildLogger()

	loader, err := config.NewLoader(logger)
	if err != nil {
		return err
	}
	doc, err := loader.Load(paramsPath)
	if err != nil {
		return err
	}
	env, err := doc.Environment(flags.environment)
	if err != nil {
		return err
	}

	// One snapshot per run: every cell sees the same pipeline decision.
	rc := config.DetectRunContext()

	gate, err := buildGate(flags, logger)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:   true,
		Namespace: "cloudweave",
	})
	tracer, err := buildTracer(flags)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	writer := artifacts.NewWriter(flags.root, logger)
	runner := terraform.NewRunner(terraform.NewLocalExecutor(logger), logger)
	runner.SetObserver(metrics)
	runner.SetTracer(tracer)

	orch := engine.NewOrchestrator(writer, runner, gate, metrics, tracer, logger)
	summary := orch.Orchestrate(ctx, env, action, rc, engine.Filter{
		Clouds:  engine.ParseFilterList(flags.clouds),
		Modules: engine.ParseFilterList(flags.modules),
	})

	if !flags.noHistory {
		recordHistory(ctx, flags.historyDB, summary, rc, logger)
	}

	reporter := engine.NewReporter(os.Stdout, jsonOutput, logger)
	code, err := reporter.Report(summary)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to render report")
	}
	if code != 0 {
		return engine.NewAggregateError(summary.Failed, summary.Total())
	}
	return nil
}

func buildLogger() zerolog.Logger {
	cfg := telemetry.DefaultConfig().Logging
	if verbose {
		cfg.Level = "debug"
	}
	return telemetry.NewLogger(cfg)
}

func buildGate(flags *runFlags, logger zerolog.Logger) (engine.PolicyGate, error) {
	if flags.noPolicy {
		return nil, nil
	}

	gate, err := policy.NewEngine(logger)
	if err != nil {
		return nil, err
	}
	if flags.policyDir != "" {
		loaded, err := policy.NewLoader(logger).LoadDir(flags.policyDir)
		if err != nil {
			return nil, err
		}
		if err := gate.SetPolicies(loaded); err != nil {
			return nil, err
		}
	}
	return gate, nil
}

func buildTracer(flags *runFlags) (*telemetry.Tracer, error) {
	cfg := telemetry.DefaultConfig().Tracing
	cfg.Enabled = flags.trace
	if flags.traceTarget != "" {
		cfg.Exporter = "otlp"
		cfg.Endpoint = flags.traceTarget
		cfg.Insecure = true
	}
	return telemetry.NewTracer(cfg, "cloudweave", "dev")
}

// recordHistory persists the summary. History is advisory; failures are
// logged and never change the exit code.
func recordHistory(ctx context.Context, path string, summary *engine.RunSummary, rc config.RunContext, logger zerolog.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn().Err(err).Msg("Failed to create history directory")
		return
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create history store")
		return
	}
	if err := store.Init(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to open history store")
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close history store")
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to migrate history store")
		return
	}
	if err := store.RecordSummary(ctx, summary, rc.Pipeline); err != nil {
		logger.Warn().Err(err).Msg("Failed to record run history")
		return
	}
	log.Debug().Str("run_id", summary.RunID).Str("path", path).Msg("Run history recorded")
}
