package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cloudweave/cloudweave/pkg/config"
)

// fakeWriter records artifact writes in memory.
type fakeWriter struct {
	variableWrites []Cell
	backendWrites  []Cell
	failVariables  map[Cell]bool
}

func (f *fakeWriter) ModuleDir(cloud, module string) string {
	return filepath.Join("/infra", cloud, module)
}

func (f *fakeWriter) WriteVariables(cloud, module string, vars config.Variables) (string, error) {
	cell := Cell{Cloud: cloud, Module: module}
	if f.failVariables[cell] {
		return "", NewArtifactError(cloud, module, "module directory does not exist", nil)
	}
	f.variableWrites = append(f.variableWrites, cell)
	return f.ModuleDir(cloud, module) + "/terraform.tfvars.json", nil
}

func (f *fakeWriter) WriteBackendConfig(cloud, module, environment string, b *config.BackendSettings, rc config.RunContext) (string, error) {
	if b == nil {
		return "", nil
	}
	f.backendWrites = append(f.backendWrites, Cell{Cloud: cloud, Module: module})
	return f.ModuleDir(cloud, module) + "/backend.hcl", nil
}

// fakeRunner records lifecycle invocations and fails scripted cells.
type fakeRunner struct {
	runs     []Cell
	backends map[Cell]string
	fail     map[Cell]bool
}

func (f *fakeRunner) Run(_ context.Context, cell Cell, dir string, action Action, backendConfig string) error {
	f.runs = append(f.runs, cell)
	if f.backends == nil {
		f.backends = make(map[Cell]string)
	}
	f.backends[cell] = backendConfig
	if f.fail[cell] {
		return NewExecutionError(cell.Cloud, cell.Module, action.Stage(), 1, "Error: apply failed", nil)
	}
	return nil
}

// fakeGate denies scripted cells with one error-severity violation.
type fakeGate struct {
	deny map[Cell]bool
	seen []PolicyInput
}

func (f *fakeGate) EvaluateCell(_ context.Context, input PolicyInput) (*PolicyDecision, error) {
	f.seen = append(f.seen, input)
	cell := Cell{Cloud: input.Cloud, Module: input.Module}
	if f.deny[cell] {
		return &PolicyDecision{
			Allowed: false,
			Violations: []PolicyViolation{
				{Policy: "test-policy", Message: "denied", Severity: "error"},
			},
		}, nil
	}
	return &PolicyDecision{Allowed: true}, nil
}

func testEnvironment() *config.Environment {
	disabled := false
	return &config.Environment{
		Name:   "dev",
		Common: map[string]any{"owner": "platform"},
		Backend: &config.BackendSettings{
			Bucket: "tfstate-dev",
			Region: "eu-west-1",
		},
		Clouds: map[string]*config.Cloud{
			"aws": {
				Settings: map[string]any{"region": "eu-west-1"},
				Modules: map[string]config.ModuleSettings{
					"app":     {"replicas": 2},
					"compute": {"instance_type": "t3.micro"},
					"network": {"cidr": "10.0.0.0/16"},
				},
			},
			"azure": {
				Settings: map[string]any{"location": "westeurope"},
				Modules: map[string]config.ModuleSettings{
					"network": {"cidr": "10.1.0.0/16"},
				},
			},
			"gcp": {
				Enabled: &disabled,
				Modules: map[string]config.ModuleSettings{
					"network": {},
				},
			},
		},
	}
}

func newTestOrchestrator(writer *fakeWriter, runner *fakeRunner, gate PolicyGate) *Orchestrator {
	return NewOrchestrator(writer, runner, gate, nil, nil, zerolog.Nop())
}

func cellsOf(results []CellResult, status CellStatus) []Cell {
	var cells []Cell
	for _, r := range results {
		if r.Status == status {
			cells = append(cells, r.Cell)
		}
	}
	return cells
}

func TestOrchestrateExecutionOrder(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{})

	// Clouds lexicographic; inside aws network precedes compute, the rest
	// follows lexicographically.
	want := []Cell{
		{Cloud: "aws", Module: "network"},
		{Cloud: "aws", Module: "compute"},
		{Cloud: "aws", Module: "app"},
		{Cloud: "azure", Module: "network"},
	}
	if len(runner.runs) != len(want) {
		t.Fatalf("executed %d cells, want %d: %v", len(runner.runs), len(want), runner.runs)
	}
	for i, cell := range want {
		if runner.runs[i] != cell {
			t.Errorf("run[%d] = %v, want %v", i, runner.runs[i], cell)
		}
	}

	if summary.Succeeded != 4 || summary.Failed != 0 || summary.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 4/0/1", summary.Succeeded, summary.Failed, summary.Skipped)
	}
	if summary.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", summary.ExitCode())
	}
	if summary.RunID == "" {
		t.Error("run ID is empty")
	}
}

func TestOrchestrateDisabledCloud(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{})

	var gcpSkips []CellResult
	for _, r := range summary.Results {
		if r.Cell.Cloud == "gcp" {
			gcpSkips = append(gcpSkips, r)
		}
	}
	if len(gcpSkips) != 1 {
		t.Fatalf("gcp records = %d, want exactly 1", len(gcpSkips))
	}
	if gcpSkips[0].Status != CellSkipped || gcpSkips[0].SkipReason != SkipDisabled {
		t.Errorf("gcp record = %+v, want skipped/disabled", gcpSkips[0])
	}

	for _, cell := range runner.runs {
		if cell.Cloud == "gcp" {
			t.Error("disabled cloud was executed")
		}
	}
}

func TestOrchestrateCloudFilter(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{Clouds: []string{"aws"}})

	skipped := cellsOf(summary.Results, CellSkipped)
	if len(skipped) != 2 {
		t.Fatalf("skipped = %v, want azure and gcp", skipped)
	}
	for _, r := range summary.Results {
		if r.Status != CellSkipped {
			continue
		}
		if r.SkipReason != SkipFiltered {
			t.Errorf("%s skip reason = %q, want filtered", r.Cell.Cloud, r.SkipReason)
		}
	}

	for _, cell := range runner.runs {
		if cell.Cloud != "aws" {
			t.Errorf("filtered cloud %s was executed", cell.Cloud)
		}
	}
}

func TestOrchestrateModuleFilter(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{Modules: []string{"network"}})

	for _, cell := range runner.runs {
		if cell.Module != "network" {
			t.Errorf("filtered module %v was executed", cell)
		}
	}
	if summary.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2 (aws and azure network)", summary.Succeeded)
	}
}

func TestOrchestrateFailureIsolation(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{
		fail: map[Cell]bool{{Cloud: "aws", Module: "network"}: true},
	}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionApply, config.RunContext{}, Filter{})

	// The failing cell never stops the remaining cells.
	if len(runner.runs) != 4 {
		t.Fatalf("executed %d cells, want all 4: %v", len(runner.runs), runner.runs)
	}
	if summary.Failed != 1 || summary.Succeeded != 3 {
		t.Errorf("counts = %d failed / %d succeeded, want 1/3", summary.Failed, summary.Succeeded)
	}
	if summary.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", summary.ExitCode())
	}

	for _, r := range summary.Results {
		if r.Status != CellFailed {
			continue
		}
		if r.Cell != (Cell{Cloud: "aws", Module: "network"}) {
			t.Errorf("failed cell = %v", r.Cell)
		}
		if r.Stage != StageApply {
			t.Errorf("failed stage = %q, want apply", r.Stage)
		}
		if r.Output != "Error: apply failed" {
			t.Errorf("output = %q", r.Output)
		}
		if r.Err == nil {
			t.Error("failed cell carries no error")
		}
	}
}

func TestOrchestrateArtifactFailure(t *testing.T) {
	writer := &fakeWriter{
		failVariables: map[Cell]bool{{Cloud: "aws", Module: "app"}: true},
	}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{})

	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	for _, r := range summary.Results {
		if r.Status == CellFailed && r.Stage != StageArtifacts {
			t.Errorf("failed stage = %q, want artifacts", r.Stage)
		}
	}

	// No lifecycle run for the failed cell.
	for _, cell := range runner.runs {
		if cell == (Cell{Cloud: "aws", Module: "app"}) {
			t.Error("cell with failed artifacts was executed")
		}
	}
}

func TestOrchestratePolicyDenial(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	gate := &fakeGate{
		deny: map[Cell]bool{{Cloud: "aws", Module: "compute"}: true},
	}
	o := newTestOrchestrator(writer, runner, gate)

	summary := o.Orchestrate(context.Background(), testEnvironment(), ActionApply, config.RunContext{}, Filter{})

	if summary.Failed != 1 || summary.Succeeded != 3 {
		t.Fatalf("counts = %d failed / %d succeeded, want 1/3", summary.Failed, summary.Succeeded)
	}
	for _, r := range summary.Results {
		if r.Status == CellFailed {
			if r.Stage != StagePolicy {
				t.Errorf("failed stage = %q, want policy", r.Stage)
			}
			if !IsPolicy(r.Err) {
				t.Errorf("error %v is not a policy error", r.Err)
			}
		}
	}

	// A denied cell writes no artifacts and runs nothing.
	for _, cell := range writer.variableWrites {
		if cell == (Cell{Cloud: "aws", Module: "compute"}) {
			t.Error("denied cell wrote artifacts")
		}
	}
	for _, cell := range runner.runs {
		if cell == (Cell{Cloud: "aws", Module: "compute"}) {
			t.Error("denied cell was executed")
		}
	}
}

func TestOrchestratePolicyInputCarriesMergedVariables(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	gate := &fakeGate{}
	o := newTestOrchestrator(writer, runner, gate)

	o.Orchestrate(context.Background(), testEnvironment(), ActionPlan, config.RunContext{}, Filter{Clouds: []string{"aws"}, Modules: []string{"network"}})

	if len(gate.seen) != 1 {
		t.Fatalf("gate evaluated %d cells, want 1", len(gate.seen))
	}
	input := gate.seen[0]
	if input.Environment != "dev" || input.Cloud != "aws" || input.Module != "network" {
		t.Errorf("policy input = %+v", input)
	}
	if input.Variables["cidr"] != "10.0.0.0/16" || input.Variables["owner"] != "platform" {
		t.Errorf("policy variables = %v", input.Variables)
	}
	if input.Backend["bucket"] != "tfstate-dev" {
		t.Errorf("policy backend = %v", input.Backend)
	}
	if input.Backend["encrypt"] != true {
		t.Errorf("policy backend encrypt = %v, want true", input.Backend["encrypt"])
	}
}

func TestOrchestrateBackendConfigPlumbing(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	env := testEnvironment()
	o.Orchestrate(context.Background(), env, ActionPlan, config.RunContext{}, Filter{Clouds: []string{"azure"}})

	cell := Cell{Cloud: "azure", Module: "network"}
	if runner.backends[cell] != "backend.hcl" {
		t.Errorf("backend config = %q, want backend.hcl", runner.backends[cell])
	}

	// Without backend settings the runner gets an empty descriptor name.
	env.Backend = nil
	runner2 := &fakeRunner{}
	o2 := newTestOrchestrator(&fakeWriter{}, runner2, nil)
	o2.Orchestrate(context.Background(), env, ActionPlan, config.RunContext{}, Filter{Clouds: []string{"azure"}})
	if runner2.backends[cell] != "" {
		t.Errorf("backend config = %q, want empty", runner2.backends[cell])
	}
}

func TestOrchestrateModuleDisabled(t *testing.T) {
	writer := &fakeWriter{}
	runner := &fakeRunner{}
	o := newTestOrchestrator(writer, runner, nil)

	env := testEnvironment()
	env.Clouds["aws"].Modules["app"] = config.ModuleSettings{"enabled": false}

	summary := o.Orchestrate(context.Background(), env, ActionPlan, config.RunContext{}, Filter{Clouds: []string{"aws"}})

	var appResult *CellResult
	for i := range summary.Results {
		if summary.Results[i].Cell == (Cell{Cloud: "aws", Module: "app"}) {
			appResult = &summary.Results[i]
		}
	}
	if appResult == nil {
		t.Fatal("no record for aws/app")
	}
	if appResult.Status != CellSkipped || appResult.SkipReason != SkipDisabled {
		t.Errorf("aws/app = %+v, want skipped/disabled", appResult)
	}
}

func TestParseFilterList(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "single", in: []string{"aws"}, want: []string{"aws"}},
		{name: "comma separated", in: []string{"aws,azure"}, want: []string{"aws", "azure"}},
		{name: "space separated", in: []string{"aws azure"}, want: []string{"aws", "azure"}},
		{name: "mixed", in: []string{"aws, azure", "gcp"}, want: []string{"aws", "azure", "gcp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFilterList(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseFilterList(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseFilterList(%v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}
