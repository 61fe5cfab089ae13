package policy

// Severity is the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// block the cell.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the cell.
	SeverityError Severity = "error"

	// SeverityCritical blocks the cell and flags it for immediate review.
	SeverityCritical Severity = "critical"
)

// Policy is one rego rule set evaluated against every cell.
type Policy struct {
	// Name is the unique policy name.
	Name string `json:"name"`

	// Description is a human-readable summary.
	Description string `json:"description"`

	// Rego is the policy source. Violations are collected from the
	// package's `deny` set.
	Rego string `json:"rego"`

	// Severity is the default severity when a violation does not carry
	// its own.
	Severity Severity `json:"severity"`

	// Enabled gates evaluation.
	Enabled bool `json:"enabled"`

	// Tags organize policies.
	Tags []string `json:"tags,omitempty"`
}
