package terraform

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudweave/cloudweave/pkg/engine"
	"github.com/cloudweave/cloudweave/pkg/telemetry"
)

// Binary is the provisioning tool executable.
const Binary = "terraform"

// StageObserver receives the duration of each completed or failed stage.
// Satisfied by telemetry.Metrics.
type StageObserver interface {
	ObserveStage(stage string, d time.Duration)
}

// Runner executes the tool's lifecycle as an ordered blocking pipeline:
// init, validate, then the requested action. The pipeline stops at the
// first stage that exits non-zero; there are no retries.
type Runner struct {
	executor Executor
	logger   zerolog.Logger
	observer StageObserver
	tracer   *telemetry.Tracer
}

// NewRunner creates a lifecycle runner on top of an executor.
func NewRunner(executor Executor, logger zerolog.Logger) *Runner {
	return &Runner{
		executor: executor,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// SetObserver wires per-stage duration reporting. Optional.
func (r *Runner) SetObserver(obs StageObserver) {
	r.observer = obs
}

// SetTracer wires per-stage spans. Optional.
func (r *Runner) SetTracer(tracer *telemetry.Tracer) {
	r.tracer = tracer
}

// Run drives the lifecycle for one cell in its module directory.
// backendConfig is the backend descriptor file name passed to init, empty
// when none was written. A nil return means every stage through the
// requested action exited zero; a non-nil return is the classified
// execution error recording the failing stage and captured output. A
// cancelled context surfaces as a failure of the in-flight stage, never as
// a skip.
func (r *Runner) Run(ctx context.Context, cell engine.Cell, dir string, action engine.Action, backendConfig string) error {
	for _, stage := range Stages(action) {
		if err := r.runStage(ctx, cell, dir, stage, backendConfig); err != nil {
			return err
		}
	}
	return nil
}

// Stages returns the ordered lifecycle pipeline for an action.
func Stages(action engine.Action) []engine.Stage {
	return []engine.Stage{engine.StageInit, engine.StageValidate, action.Stage()}
}

func (r *Runner) runStage(ctx context.Context, cell engine.Cell, dir string, stage engine.Stage, backendConfig string) (retErr error) {
	args := stageArgs(stage, backendConfig)

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.StartStageSpan(ctx, string(stage))
		defer func() {
			if retErr != nil {
				telemetry.RecordError(span, retErr)
			}
			span.End()
		}()
	}

	start := time.Now()
	result, err := r.executor.Exec(ctx, dir, Binary, args...)
	elapsed := time.Since(start)

	if r.observer != nil {
		r.observer.ObserveStage(string(stage), elapsed)
	}

	logger := r.logger.With().
		Str("cloud", cell.Cloud).
		Str("module", cell.Module).
		Str("stage", string(stage)).
		Dur("duration", elapsed).
		Logger()

	if err != nil {
		logger.Error().Err(err).Msg("Stage did not complete")
		return engine.NewExecutionError(cell.Cloud, cell.Module, stage, result.ExitCode, result.Output, err)
	}
	if result.ExitCode != 0 {
		logger.Error().Int("exit_code", result.ExitCode).Msg("Stage failed")
		return engine.NewExecutionError(cell.Cloud, cell.Module, stage, result.ExitCode, result.Output, nil)
	}

	logger.Debug().Msg("Stage completed")
	return nil
}

func stageArgs(stage engine.Stage, backendConfig string) []string {
	switch stage {
	case engine.StageInit:
		args := []string{"init", "-input=false", "-reconfigure"}
		if backendConfig != "" {
			args = append(args, "-backend-config="+backendConfig)
		}
		return args
	case engine.StageValidate:
		return []string{"validate"}
	case engine.StagePlan:
		return []string{"plan", "-input=false", "-out=tfplan"}
	case engine.StageApply:
		return []string{"apply", "-input=false", "-auto-approve"}
	case engine.StageDestroy:
		return []string{"destroy", "-input=false", "-auto-approve"}
	default:
		return []string{string(stage)}
	}
}
