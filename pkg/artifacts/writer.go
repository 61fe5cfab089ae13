// Package artifacts materializes merged configuration as the files the
// provisioning tool reads: a JSON variable file and an HCL backend
// descriptor per module directory. Content is deterministic per
// (cloud, environment, module) and every write overwrites unconditionally;
// a stale artifact from a previous run surviving a reconfiguration is a
// documented class of defect this package exists to prevent.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cloudweave/cloudweave/pkg/config"
	"github.com/cloudweave/cloudweave/pkg/engine"
)

const (
	// VariablesFileName is the variable file consumed by the tool.
	VariablesFileName = "terraform.tfvars.json"

	// BackendFileName is the backend descriptor passed to init.
	BackendFileName = "backend.hcl"
)

// Writer materializes artifacts under root/<cloud>/<module>/.
type Writer struct {
	root   string
	logger zerolog.Logger
}

// NewWriter creates a writer rooted at the directory holding the per-cloud
// module trees.
func NewWriter(root string, logger zerolog.Logger) *Writer {
	return &Writer{
		root:   root,
		logger: logger.With().Str("component", "artifact-writer").Logger(),
	}
}

// ModuleDir returns the working directory of one cell.
func (w *Writer) ModuleDir(cloud, module string) string {
	return filepath.Join(w.root, cloud, module)
}

// WriteVariables serializes the effective variable set into the module
// directory. Keys are emitted in lexicographic order so identical input
// produces byte-identical output.
func (w *Writer) WriteVariables(cloud, module string, vars config.Variables) (string, error) {
	data, err := json.MarshalIndent(map[string]any(vars), "", "  ")
	if err != nil {
		return "", engine.NewArtifactError(cloud, module, "failed to serialize variables", err)
	}
	data = append(data, '\n')

	path := filepath.Join(w.ModuleDir(cloud, module), VariablesFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", engine.NewArtifactError(cloud, module, "failed to write variable file", err)
	}

	w.logger.Debug().
		Str("cloud", cloud).
		Str("module", module).
		Str("path", path).
		Msg("Variable file written")

	return path, nil
}

// WriteBackendConfig serializes the backend descriptor into the module
// directory. A nil backend writes nothing and returns an empty path; the
// provisioning tool then falls back to local state.
func (w *Writer) WriteBackendConfig(cloud, module, environment string, b *config.BackendSettings, rc config.RunContext) (string, error) {
	if b == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, e := range BackendDescriptor(cloud, environment, b, rc) {
		switch v := e.Value.(type) {
		case bool:
			fmt.Fprintf(&sb, "%s = %t\n", e.Key, v)
		default:
			fmt.Fprintf(&sb, "%s = %q\n", e.Key, v)
		}
	}

	path := filepath.Join(w.ModuleDir(cloud, module), BackendFileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", engine.NewArtifactError(cloud, module, "failed to write backend descriptor", err)
	}

	w.logger.Debug().
		Str("cloud", cloud).
		Str("module", module).
		Str("path", path).
		Msg("Backend descriptor written")

	return path, nil
}

// Entry is one key/value pair of the backend descriptor.
type Entry struct {
	Key   string
	Value any
}

// BackendDescriptor computes the descriptor entries for one cell in their
// fixed emission order. The state key is exactly
// {cloud}/{environment}/state. The credential profile is omitted in
// pipeline context.
func BackendDescriptor(cloud, environment string, b *config.BackendSettings, rc config.RunContext) []Entry {
	entries := []Entry{
		{Key: "bucket", Value: b.Bucket},
		{Key: "key", Value: StateKey(cloud, environment)},
		{Key: "region", Value: b.Region},
		{Key: "encrypt", Value: b.Encrypted()},
		{Key: "workspace_key_prefix", Value: cloud + "/" + environment},
	}
	if b.DynamoDBTable != "" {
		entries = append(entries, Entry{Key: "dynamodb_table", Value: b.DynamoDBTable})
	}
	if b.Profile != "" && !rc.Pipeline {
		entries = append(entries, Entry{Key: "profile", Value: b.Profile})
	}
	if b.KMSKeyID != "" {
		entries = append(entries, Entry{Key: "kms_key_id", Value: b.KMSKeyID})
	}
	return entries
}

// StateKey is the per-module remote-state key: one state path per
// (cloud, environment).
func StateKey(cloud, environment string) string {
	return cloud + "/" + environment + "/state"
}
