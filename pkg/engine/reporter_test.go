package engine

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func sampleSummary() *RunSummary {
	started := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	s := &RunSummary{
		RunID:       "run-1",
		Environment: "dev",
		Action:      ActionApply,
		StartedAt:   started,
		CompletedAt: started.Add(90 * time.Second),
		Results: []CellResult{
			{Cell: Cell{Cloud: "aws", Module: "network"}, Status: CellSucceeded, Duration: 40 * time.Second},
			{Cell: Cell{Cloud: "aws", Module: "compute"}, Status: CellFailed, Stage: StageApply,
				Err: NewExecutionError("aws", "compute", StageApply, 1, "Error: quota exceeded", nil), Output: "Error: quota exceeded"},
			{Cell: Cell{Cloud: "gcp"}, Status: CellSkipped, SkipReason: SkipDisabled},
		},
	}
	s.Tally()
	return s
}

func TestReporterText(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false, zerolog.Nop())

	code, err := r.Report(sampleSummary())
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	out := buf.String()
	for _, want := range []string{
		"APPLY run run-1",
		"aws/network",
		"FAILED",
		"stage=apply",
		"quota exceeded",
		"skip",
		"(disabled)",
		"1 succeeded, 1 failed, 1 skipped (of 3)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReporterJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true, zerolog.Nop())

	code, err := r.Report(sampleSummary())
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if decoded["failed"] != float64(1) {
		t.Errorf("failed = %v, want 1", decoded["failed"])
	}
	results, ok := decoded["results"].([]any)
	if !ok || len(results) != 3 {
		t.Errorf("results = %v", decoded["results"])
	}
}

func TestReporterAllSucceeded(t *testing.T) {
	s := &RunSummary{
		RunID:       "run-2",
		Environment: "dev",
		Action:      ActionPlan,
		Results: []CellResult{
			{Cell: Cell{Cloud: "aws", Module: "network"}, Status: CellSucceeded},
			{Cell: Cell{Cloud: "azure", Module: "network"}, Status: CellSkipped, SkipReason: SkipFiltered},
		},
	}
	s.Tally()

	var buf bytes.Buffer
	r := NewReporter(&buf, false, zerolog.Nop())

	code, err := r.Report(s)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	// Skips never make a run fail.
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}
