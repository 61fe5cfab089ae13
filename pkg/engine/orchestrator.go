package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudweave/cloudweave/pkg/config"
	"github.com/cloudweave/cloudweave/pkg/telemetry"
)

// Filter narrows the execution matrix. Empty slices select everything.
type Filter struct {
	Clouds  []string
	Modules []string
}

// ParseFilterList normalizes user-supplied filter arguments, accepting
// comma- or space-separated lists in any mix.
func ParseFilterList(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.FieldsFunc(arg, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			out = append(out, part)
		}
	}
	return out
}

func matches(filter []string, name string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}

// Orchestrator iterates the cloud x module matrix for one environment,
// invoking merge, policy gate, artifact writer and lifecycle runner per
// cell. Execution is strictly sequential: remote state locking is keyed per
// module and environment, so overlapping invocations of the same key would
// contend on the external lock; running one cell at a time sidesteps that
// without an in-process lock protocol.
type Orchestrator struct {
	writer  ArtifactWriter
	runner  LifecycleRunner
	gate    PolicyGate
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	logger  zerolog.Logger
}

// NewOrchestrator creates an orchestrator. The gate may be nil to disable
// policy screening; nil metrics or tracer degrade to no-ops.
func NewOrchestrator(
	writer ArtifactWriter,
	runner LifecycleRunner,
	gate PolicyGate,
	metrics *telemetry.Metrics,
	tracer *telemetry.Tracer,
	logger zerolog.Logger,
) *Orchestrator {
	if metrics == nil {
		metrics = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}
	if tracer == nil {
		tracer, _ = telemetry.NewTracer(telemetry.TracingConfig{}, "cloudweave", "dev")
	}
	return &Orchestrator{
		writer:  writer,
		runner:  runner,
		gate:    gate,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Orchestrate processes every cell of the environment's matrix. Failure in
// one cell never aborts the loop; every remaining cell is still attempted
// and the aggregate summary is the only global failure signal. The
// run-context snapshot is taken by the caller, once per run.
func (o *Orchestrator) Orchestrate(ctx context.Context, env *config.Environment, action Action, rc config.RunContext, filter Filter) *RunSummary {
	summary := &RunSummary{
		RunID:       uuid.New().String(),
		Environment: env.Name,
		Action:      action,
		StartedAt:   time.Now(),
	}

	o.metrics.RunStarted()
	ctx, span := o.tracer.StartRunSpan(ctx, summary.RunID, env.Name, string(action))
	defer span.End()

	o.logger.Info().
		Str("run_id", summary.RunID).
		Str("environment", env.Name).
		Str("action", string(action)).
		Bool("pipeline", rc.Pipeline).
		Msg("Orchestration started")

	for _, cloud := range cloudOrder(env) {
		c := env.Clouds[cloud]

		// Filter wins over disabled so an operator narrowing a run sees
		// the clouds they excluded, not the document's enabled flags.
		if !matches(filter.Clouds, cloud) {
			summary.Results = append(summary.Results, skipResult(cloud, "", SkipFiltered))
			o.logger.Info().Str("cloud", cloud).Msg("Cloud filtered, skipping")
			continue
		}
		if !c.IsEnabled() {
			summary.Results = append(summary.Results, skipResult(cloud, "", SkipDisabled))
			o.logger.Info().Str("cloud", cloud).Msg("Cloud disabled, skipping")
			continue
		}

		for _, module := range moduleOrder(c) {
			if !matches(filter.Modules, module) {
				summary.Results = append(summary.Results, skipResult(cloud, module, SkipFiltered))
				o.logger.Info().Str("cloud", cloud).Str("module", module).Msg("Module filtered, skipping")
				continue
			}
			if moduleDisabled(c.Modules[module]) {
				summary.Results = append(summary.Results, skipResult(cloud, module, SkipDisabled))
				o.logger.Info().Str("cloud", cloud).Str("module", module).Msg("Module disabled, skipping")
				continue
			}

			result := o.executeCell(ctx, env, Cell{Cloud: cloud, Module: module}, action, rc)
			summary.Results = append(summary.Results, result)
		}
	}

	summary.CompletedAt = time.Now()
	summary.Tally()

	for i := range summary.Results {
		o.metrics.RecordCell(summary.Results[i].Cell.Cloud, string(summary.Results[i].Status))
	}

	status := "succeeded"
	if summary.Failed > 0 {
		status = "failed"
		telemetry.RecordError(span, NewAggregateError(summary.Failed, summary.Total()))
	}
	o.metrics.RunCompleted(status, summary.CompletedAt.Sub(summary.StartedAt))

	return summary
}

// executeCell runs merge -> policy -> artifacts -> lifecycle for one cell.
func (o *Orchestrator) executeCell(ctx context.Context, env *config.Environment, cell Cell, action Action, rc config.RunContext) CellResult {
	start := time.Now()
	ctx, span := o.tracer.StartCellSpan(ctx, cell.Cloud, cell.Module)
	defer span.End()

	o.logger.Info().
		Str("cloud", cell.Cloud).
		Str("module", cell.Module).
		Msg("Processing cell")

	vars := env.MergeCell(cell.Cloud, cell.Module, rc)

	if o.gate != nil {
		if result, failed := o.screenCell(ctx, env, cell, action, vars, rc, start); failed {
			telemetry.RecordError(span, result.Err)
			return result
		}
	}

	if _, err := o.writer.WriteVariables(cell.Cloud, cell.Module, vars); err != nil {
		telemetry.RecordError(span, err)
		return failResult(cell, err, start)
	}
	backendPath, err := o.writer.WriteBackendConfig(cell.Cloud, cell.Module, env.Name, env.Backend, rc)
	if err != nil {
		telemetry.RecordError(span, err)
		return failResult(cell, err, start)
	}

	backendConfig := ""
	if backendPath != "" {
		backendConfig = filepath.Base(backendPath)
	}

	err = o.runner.Run(ctx, cell, o.writer.ModuleDir(cell.Cloud, cell.Module), action, backendConfig)
	if err != nil {
		telemetry.RecordError(span, err)
		return failResult(cell, err, start)
	}

	o.logger.Info().
		Str("cloud", cell.Cloud).
		Str("module", cell.Module).
		Dur("duration", time.Since(start)).
		Msg("Cell succeeded")

	return CellResult{
		Cell:     cell,
		Status:   CellSucceeded,
		Duration: time.Since(start),
	}
}

// screenCell evaluates the policy gate. The second return is true when the
// cell must fail at the policy stage.
func (o *Orchestrator) screenCell(ctx context.Context, env *config.Environment, cell Cell, action Action, vars config.Variables, rc config.RunContext, start time.Time) (CellResult, bool) {
	input := PolicyInput{
		Environment: env.Name,
		Cloud:       cell.Cloud,
		Module:      cell.Module,
		Action:      action,
		Variables:   vars,
		Backend:     backendInput(env.Backend, rc),
	}

	decision, err := o.gate.EvaluateCell(ctx, input)
	if err != nil {
		return failResult(cell, NewPolicyError(cell.Cloud, cell.Module, "policy evaluation failed: "+err.Error()), start), true
	}

	for _, v := range decision.Violations {
		o.logger.Warn().
			Str("cloud", cell.Cloud).
			Str("module", cell.Module).
			Str("policy", v.Policy).
			Str("severity", v.Severity).
			Msg(v.Message)
	}

	if !decision.Allowed {
		blocking := decision.Blocking()
		msgs := make([]string, 0, len(blocking))
		for _, v := range blocking {
			msgs = append(msgs, v.Policy+": "+v.Message)
		}
		return failResult(cell, NewPolicyError(cell.Cloud, cell.Module, strings.Join(msgs, "; ")), start), true
	}

	return CellResult{}, false
}

// backendInput flattens the backend settings for policy evaluation,
// mirroring what the descriptor will contain.
func backendInput(b *config.BackendSettings, rc config.RunContext) map[string]any {
	if b == nil {
		return nil
	}
	m := map[string]any{
		"bucket":  b.Bucket,
		"region":  b.Region,
		"encrypt": b.Encrypted(),
	}
	if b.DynamoDBTable != "" {
		m["dynamodb_table"] = b.DynamoDBTable
	}
	if b.Profile != "" && !rc.Pipeline {
		m["profile"] = b.Profile
	}
	if b.KMSKeyID != "" {
		m["kms_key_id"] = b.KMSKeyID
	}
	return m
}

func failResult(cell Cell, err error, start time.Time) CellResult {
	result := CellResult{
		Cell:     cell,
		Status:   CellFailed,
		Err:      err,
		Duration: time.Since(start),
	}
	var e *Error
	if errors.As(err, &e) {
		result.Stage = e.Stage
		result.Output = e.Output
	}
	return result
}

func skipResult(cloud, module string, reason SkipReason) CellResult {
	return CellResult{
		Cell:       Cell{Cloud: cloud, Module: module},
		Status:     CellSkipped,
		SkipReason: reason,
	}
}

// cloudOrder returns the environment's cloud names in their fixed,
// documented order: lexicographic. For the conventional providers this
// matches the original aws, azure, gcp sequence and stays stable as
// providers are added.
func cloudOrder(env *config.Environment) []string {
	names := make([]string, 0, len(env.Clouds))
	for name := range env.Clouds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// modulePriority is the fixed intra-cloud ordering policy: network-type
// modules provision before compute-type modules that reference their
// outputs, everything else follows lexicographically. The loop does not
// verify cross-module dependencies beyond this ordering; that remains the
// operator's responsibility.
var modulePriority = map[string]int{
	"network": 0,
	"compute": 1,
}

const modulePriorityOther = 2

// moduleOrder returns the cloud's module names in execution order.
func moduleOrder(c *config.Cloud) []string {
	names := make([]string, 0, len(c.Modules))
	for name := range c.Modules {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := priorityOf(names[i]), priorityOf(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

func priorityOf(module string) int {
	if p, ok := modulePriority[module]; ok {
		return p
	}
	return modulePriorityOther
}

// moduleDisabled honors an enabled=false key inside opaque module
// settings. The key is structural and never reaches the merged variables.
func moduleDisabled(settings config.ModuleSettings) bool {
	if v, ok := settings["enabled"]; ok {
		if enabled, ok := v.(bool); ok {
			return !enabled
		}
	}
	return false
}
