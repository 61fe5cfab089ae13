// Package terraform drives the external provisioning tool through its
// lifecycle. The tool is a black box: a child process per stage, an exit
// code and captured output. Process invocation sits behind the narrow
// Executor capability so the lifecycle runner can be exercised in tests
// without a real binary.
package terraform

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/rs/zerolog"
)

// ExecResult is the outcome of one child-process invocation.
type ExecResult struct {
	// ExitCode is the process exit code, -1 when the process could not be
	// started or was killed before exiting.
	ExitCode int

	// Output is the combined standard output and standard error.
	Output string
}

// Executor runs one command to completion in a working directory. A
// non-zero exit code is reported through ExecResult, not through the error;
// the error is reserved for failures to run at all (missing binary,
// cancelled context).
type Executor interface {
	Exec(ctx context.Context, dir string, name string, args ...string) (ExecResult, error)
}

// LocalExecutor invokes commands as local child processes. Each invocation
// blocks until the child exits; context cancellation kills the child.
type LocalExecutor struct {
	logger zerolog.Logger
}

// NewLocalExecutor creates a local executor.
func NewLocalExecutor(logger zerolog.Logger) *LocalExecutor {
	return &LocalExecutor{
		logger: logger.With().Str("component", "executor").Logger(),
	}
}

// Exec implements Executor.
func (e *LocalExecutor) Exec(ctx context.Context, dir string, name string, args ...string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	e.logger.Debug().
		Str("dir", dir).
		Str("command", name).
		Strs("args", args).
		Msg("Executing command")

	err := cmd.Run()
	result := ExecResult{ExitCode: -1, Output: buf.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
		return result, nil
	case errors.As(err, &exitErr):
		// The child ran and exited non-zero; that is a result, not an
		// executor failure.
		result.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, nil
	default:
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, err
	}
}
