// Package rsync wraps every interaction with the external rsync binary.
// The orchestrator talks to a Runner so retention and job logic can be
// tested without spawning real processes.
package rsync

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// DefaultBinary is the rsync executable resolved through PATH.
const DefaultBinary = "rsync"

// Result is the outcome of one rsync invocation.
type Result struct {
	// Output is the combined stdout and stderr of the tool.
	Output string
	// ExitCode is the tool's exit status; zero on success.
	ExitCode int
}

// Runner executes one external sync invocation and waits for it.
type Runner interface {
	Run(ctx context.Context, args []string) (Result, error)
}

// SystemRunner spawns the system rsync binary.
type SystemRunner struct {
	Binary string
}

// Ensure SystemRunner satisfies Runner.
var _ Runner = (*SystemRunner)(nil)

// NewSystemRunner returns a Runner using the default rsync binary.
func NewSystemRunner() *SystemRunner {
	return &SystemRunner{Binary: DefaultBinary}
}

// Run spawns rsync with args and blocks until it exits. The child is killed
// when ctx is cancelled. A non-zero tool exit is reported through
// Result.ExitCode, not through err; err is reserved for failures to spawn
// or to wait (binary missing, context cancelled).
func (r *SystemRunner) Run(ctx context.Context, args []string) (Result, error) {
	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	res := Result{Output: output.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		// The subprocess was killed by cancellation, not by rsync itself.
		return res, ctx.Err()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, err
	}
}
