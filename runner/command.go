package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
)

// CommandBuilder creates the command for an external tool.
// The returned cleanup function is called once the command has finished.
type CommandBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// NewCommandBuilder returns a CommandBuilder running tools in workDir.
// The trace context of ctx is propagated to the tool through its environment.
func NewCommandBuilder(workDir string) CommandBuilder {
	return func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
		cmd := exec.CommandContext(ctx, name, arg...)
		cmd.Dir = workDir
		cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())
		return cmd, func() {}
	}
}

// exitCode extracts the exit status of a finished command.
// ok is false if the command could not be run at all.
func exitCode(runErr error) (code int, ok bool) {
	if runErr == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return -1, false
}
