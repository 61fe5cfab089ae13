package engine

import (
	"context"

	"github.com/cloudweave/cloudweave/pkg/config"
)

// ArtifactWriter materializes the merged variables and backend descriptor
// of one cell. Implemented by pkg/artifacts.
type ArtifactWriter interface {
	// ModuleDir returns the working directory of a cell.
	ModuleDir(cloud, module string) string

	// WriteVariables writes the variable file, overwriting any stale one.
	WriteVariables(cloud, module string, vars config.Variables) (string, error)

	// WriteBackendConfig writes the backend descriptor, overwriting any
	// stale one. A nil backend writes nothing and returns an empty path.
	WriteBackendConfig(cloud, module, environment string, b *config.BackendSettings, rc config.RunContext) (string, error)
}

// LifecycleRunner drives the provisioning tool for one cell. Implemented by
// pkg/terraform; exercised in tests against a fake.
type LifecycleRunner interface {
	// Run executes init, validate and the requested action in dir,
	// stopping at the first stage that exits non-zero. backendConfig is
	// the descriptor file name for init, empty when none was written.
	Run(ctx context.Context, cell Cell, dir string, action Action, backendConfig string) error
}

// PolicyGate screens a cell between merge and artifact write. Implemented
// by pkg/policy; a nil gate in the orchestrator disables screening.
type PolicyGate interface {
	EvaluateCell(ctx context.Context, input PolicyInput) (*PolicyDecision, error)
}

// PolicyInput is the evaluation input for one cell.
type PolicyInput struct {
	Environment string         `json:"environment"`
	Cloud       string         `json:"cloud"`
	Module      string         `json:"module"`
	Action      Action         `json:"action"`
	Variables   map[string]any `json:"variables"`
	Backend     map[string]any `json:"backend,omitempty"`
}

// PolicyViolation is one rule violation reported by the gate.
type PolicyViolation struct {
	// Policy is the name of the violated policy.
	Policy string `json:"policy"`

	// Message is the human-readable violation message.
	Message string `json:"message"`

	// Severity is info, warning, error or critical.
	Severity string `json:"severity"`
}

// PolicyDecision is the gate's verdict for one cell. Error and critical
// violations block the cell; lower severities are advisory.
type PolicyDecision struct {
	Allowed    bool              `json:"allowed"`
	Violations []PolicyViolation `json:"violations,omitempty"`
}

// Blocking returns the violations that made the cell fail.
func (d *PolicyDecision) Blocking() []PolicyViolation {
	var out []PolicyViolation
	for _, v := range d.Violations {
		if v.Severity == "error" || v.Severity == "critical" {
			out = append(out, v)
		}
	}
	return out
}
