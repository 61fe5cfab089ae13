package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/cloudweave/cloudweave/pkg/engine"
)

// Engine evaluates rego policies against the merged variables and backend
// descriptor of a cell, before any artifact is written or process invoked.
// It implements engine.PolicyGate.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	logger   zerolog.Logger
}

// NewEngine creates a policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*Policy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
	}
	for _, p := range BuiltinPolicies() {
		if err := e.AddPolicy(p); err != nil {
			return nil, fmt.Errorf("failed to load built-in policy %s: %w", p.Name, err)
		}
	}
	return e, nil
}

// AddPolicy compiles and registers one policy, replacing any policy of the
// same name.
func (e *Engine) AddPolicy(p Policy) error {
	if _, err := ast.ParseModule(p.Name+".rego", p.Rego); err != nil {
		return fmt.Errorf("failed to parse policy %s: %w", p.Name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cp := p
	e.policies[p.Name] = &cp
	return nil
}

// SetPolicies replaces all non-builtin policies, used by the loader's
// watch reload.
func (e *Engine) SetPolicies(policies []Policy) error {
	for i := range policies {
		if err := e.AddPolicy(policies[i]); err != nil {
			return err
		}
	}
	return nil
}

// PolicyNames lists the registered policies in lexicographic order.
func (e *Engine) PolicyNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvaluateCell implements engine.PolicyGate. A policy that fails to
// evaluate is reported as a warning-severity violation rather than
// blocking the cell.
func (e *Engine) EvaluateCell(ctx context.Context, input engine.PolicyInput) (*engine.PolicyDecision, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var violations []engine.PolicyViolation
	for _, name := range e.sortedPolicies() {
		p := e.policies[name]
		if !p.Enabled {
			continue
		}

		found, err := e.evaluatePolicy(ctx, p, input)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("policy", p.Name).
				Str("cloud", input.Cloud).
				Str("module", input.Module).
				Msg("Policy evaluation failed")
			violations = append(violations, engine.PolicyViolation{
				Policy:   p.Name,
				Message:  fmt.Sprintf("policy evaluation failed: %v", err),
				Severity: string(SeverityWarning),
			})
			continue
		}
		violations = append(violations, found...)
	}

	decision := &engine.PolicyDecision{
		Allowed:    true,
		Violations: violations,
	}
	if len(decision.Blocking()) > 0 {
		decision.Allowed = false
	}
	return decision, nil
}

func (e *Engine) sortedPolicies() []string {
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) evaluatePolicy(ctx context.Context, p *Policy, input engine.PolicyInput) ([]engine.PolicyViolation, error) {
	query := fmt.Sprintf("data.%s.deny", extractPackageName(p.Rego))

	r := rego.New(
		rego.Module(p.Name+".rego", p.Rego),
		rego.Query(query),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []engine.PolicyViolation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, e.toViolation(p, d))
			}
		}
	}
	return violations, nil
}

// toViolation converts one deny-set entry. Entries are either plain
// message strings or objects with message/severity fields.
func (e *Engine) toViolation(p *Policy, result any) engine.PolicyViolation {
	v := engine.PolicyViolation{
		Policy:   p.Name,
		Severity: string(p.Severity),
	}

	switch r := result.(type) {
	case string:
		v.Message = r
	case map[string]any:
		if msg, ok := r["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := r["severity"].(string); ok {
			v.Severity = sev
		}
	default:
		v.Message = fmt.Sprintf("%v", result)
	}

	if v.Message == "" {
		v.Message = "policy " + p.Name + " denied the cell"
	}
	return v
}

// extractPackageName pulls the package path out of rego source.
func extractPackageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "cloudweave.policies"
}
