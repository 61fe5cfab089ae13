package engine

import (
	"fmt"
	"time"
)

// Action is the provisioning-tool lifecycle action requested for a run.
type Action string

const (
	ActionPlan    Action = "plan"
	ActionApply   Action = "apply"
	ActionDestroy Action = "destroy"
)

// ParseAction validates a user-supplied action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionPlan, ActionApply, ActionDestroy:
		return Action(s), nil
	}
	return "", fmt.Errorf("invalid action %q (expected plan, apply or destroy)", s)
}

// Stage identifies one step of processing a cell. The lifecycle stages
// (init, validate, plan/apply/destroy) map to child-process invocations of
// the provisioning tool; merge, policy and artifacts run in-process before
// any child process is started.
type Stage string

const (
	StageMerge     Stage = "merge"
	StagePolicy    Stage = "policy"
	StageArtifacts Stage = "artifacts"
	StageInit      Stage = "init"
	StageValidate  Stage = "validate"
	StagePlan      Stage = "plan"
	StageApply     Stage = "apply"
	StageDestroy   Stage = "destroy"
)

// Stage returns the terminal lifecycle stage for the action.
func (a Action) Stage() Stage {
	switch a {
	case ActionApply:
		return StageApply
	case ActionDestroy:
		return StageDestroy
	default:
		return StagePlan
	}
}

// CellStatus is the outcome of one (cloud, module) cell.
type CellStatus string

const (
	CellSucceeded CellStatus = "succeeded"
	CellFailed    CellStatus = "failed"
	CellSkipped   CellStatus = "skipped"
)

// SkipReason records why a cloud or module was not attempted.
type SkipReason string

const (
	// SkipDisabled means the cloud carries enabled=false in the
	// configuration document.
	SkipDisabled SkipReason = "disabled"

	// SkipFiltered means a user-supplied cloud or module filter excluded it.
	SkipFiltered SkipReason = "filtered"
)

// Cell identifies one (cloud, module) pair of the execution matrix.
type Cell struct {
	Cloud  string `json:"cloud"`
	Module string `json:"module"`
}

func (c Cell) String() string {
	return c.Cloud + "/" + c.Module
}

// CellResult is the immutable outcome of one cell attempt. Created by the
// orchestrator, consumed by the reporter and the history store.
type CellResult struct {
	Cell Cell `json:"cell"`

	// Status is succeeded, failed or skipped.
	Status CellStatus `json:"status"`

	// Stage is the stage that failed, empty unless Status is failed.
	Stage Stage `json:"stage,omitempty"`

	// SkipReason is set only when Status is skipped.
	SkipReason SkipReason `json:"skip_reason,omitempty"`

	// Err is the classified error for a failed cell.
	Err error `json:"-"`

	// Output is captured diagnostic output from the failing stage.
	Output string `json:"output,omitempty"`

	// Duration covers merge through the last lifecycle stage attempted.
	Duration time.Duration `json:"duration"`
}

// RunSummary aggregates all cell results for one orchestration run.
// Invariant: Succeeded+Failed+Skipped == len(Results).
type RunSummary struct {
	RunID       string       `json:"run_id"`
	Environment string       `json:"environment"`
	Action      Action       `json:"action"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Results     []CellResult `json:"results"`

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Tally recomputes the aggregate counters from Results.
func (s *RunSummary) Tally() {
	s.Succeeded, s.Failed, s.Skipped = 0, 0, 0
	for i := range s.Results {
		switch s.Results[i].Status {
		case CellSucceeded:
			s.Succeeded++
		case CellFailed:
			s.Failed++
		case CellSkipped:
			s.Skipped++
		}
	}
}

// Total is the number of cells considered.
func (s *RunSummary) Total() int {
	return len(s.Results)
}

// ExitCode is the process-level outcome: 0 iff no cell failed.
func (s *RunSummary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
