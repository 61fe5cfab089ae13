package terraform

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudweave/cloudweave/pkg/engine"
)

// fakeExecutor records invocations and replays scripted results per
// subcommand.
type fakeExecutor struct {
	calls   [][]string
	dirs    []string
	results map[string]ExecResult
	errs    map[string]error
}

func (f *fakeExecutor) Exec(_ context.Context, dir, name string, args ...string) (ExecResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.dirs = append(f.dirs, dir)

	sub := args[0]
	if err, ok := f.errs[sub]; ok {
		return f.results[sub], err
	}
	if res, ok := f.results[sub]; ok {
		return res, nil
	}
	return ExecResult{ExitCode: 0}, nil
}

func TestRunnerPlanPipeline(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, zerolog.Nop())

	cell := engine.Cell{Cloud: "aws", Module: "network"}
	err := r.Run(context.Background(), cell, "/infra/aws/network", engine.ActionPlan, "backend.hcl")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{
		{"terraform", "init", "-input=false", "-reconfigure", "-backend-config=backend.hcl"},
		{"terraform", "validate"},
		{"terraform", "plan", "-input=false", "-out=tfplan"},
	}
	if !reflect.DeepEqual(exec.calls, want) {
		t.Errorf("calls = %v, want %v", exec.calls, want)
	}
	for _, dir := range exec.dirs {
		if dir != "/infra/aws/network" {
			t.Errorf("dir = %q, want /infra/aws/network", dir)
		}
	}
}

func TestRunnerActionArgs(t *testing.T) {
	tests := []struct {
		action engine.Action
		want   []string
	}{
		{engine.ActionApply, []string{"terraform", "apply", "-input=false", "-auto-approve"}},
		{engine.ActionDestroy, []string{"terraform", "destroy", "-input=false", "-auto-approve"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			exec := &fakeExecutor{}
			r := NewRunner(exec, zerolog.Nop())

			err := r.Run(context.Background(), engine.Cell{Cloud: "aws", Module: "network"}, "/tmp", tt.action, "")
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			last := exec.calls[len(exec.calls)-1]
			if !reflect.DeepEqual(last, tt.want) {
				t.Errorf("final stage args = %v, want %v", last, tt.want)
			}
		})
	}
}

func TestRunnerNoBackendConfig(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, zerolog.Nop())

	if err := r.Run(context.Background(), engine.Cell{Cloud: "aws", Module: "network"}, "/tmp", engine.ActionPlan, ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	init := exec.calls[0]
	for _, arg := range init {
		if strings.HasPrefix(arg, "-backend-config") {
			t.Errorf("init args %v carry a backend-config without a descriptor", init)
		}
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	exec := &fakeExecutor{
		results: map[string]ExecResult{
			"validate": {ExitCode: 1, Output: "Error: invalid resource"},
		},
	}
	r := NewRunner(exec, zerolog.Nop())

	err := r.Run(context.Background(), engine.Cell{Cloud: "aws", Module: "network"}, "/tmp", engine.ActionApply, "")
	if err == nil {
		t.Fatal("Run() succeeded, want error")
	}

	if len(exec.calls) != 2 {
		t.Errorf("executed %d stages, want 2 (init, validate)", len(exec.calls))
	}

	var e *engine.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v is not classified", err)
	}
	if e.Stage != engine.StageValidate {
		t.Errorf("stage = %q, want validate", e.Stage)
	}
	if e.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", e.ExitCode)
	}
	if e.Output != "Error: invalid resource" {
		t.Errorf("output = %q", e.Output)
	}
	if !engine.IsExecution(err) {
		t.Error("error is not an execution error")
	}
}

func TestRunnerExecutorFailure(t *testing.T) {
	exec := &fakeExecutor{
		errs: map[string]error{"init": errors.New("terraform: executable not found")},
	}
	r := NewRunner(exec, zerolog.Nop())

	err := r.Run(context.Background(), engine.Cell{Cloud: "gcp", Module: "compute"}, "/tmp", engine.ActionPlan, "")
	if err == nil {
		t.Fatal("Run() succeeded, want error")
	}
	if len(exec.calls) != 1 {
		t.Errorf("executed %d stages, want 1", len(exec.calls))
	}

	var e *engine.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v is not classified", err)
	}
	if e.Cloud != "gcp" || e.Module != "compute" || e.Stage != engine.StageInit {
		t.Errorf("classification = %+v", e)
	}
}

type fakeObserver struct {
	stages []string
}

func (f *fakeObserver) ObserveStage(stage string, _ time.Duration) {
	f.stages = append(f.stages, stage)
}

func TestRunnerReportsStageDurations(t *testing.T) {
	exec := &fakeExecutor{}
	obs := &fakeObserver{}
	r := NewRunner(exec, zerolog.Nop())
	r.SetObserver(obs)

	if err := r.Run(context.Background(), engine.Cell{Cloud: "aws", Module: "network"}, "/tmp", engine.ActionPlan, ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"init", "validate", "plan"}
	if !reflect.DeepEqual(obs.stages, want) {
		t.Errorf("observed stages = %v, want %v", obs.stages, want)
	}
}

func TestStages(t *testing.T) {
	got := Stages(engine.ActionDestroy)
	want := []engine.Stage{engine.StageInit, engine.StageValidate, engine.StageDestroy}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Stages() = %v, want %v", got, want)
	}
}
