package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

var _ BuildRunner = (*ninjaRunner)(nil)

// BuildRunner runs a subset of the integration tests through the build system.
type BuildRunner interface {
	// Run builds the target and waits for it to finish. A non-zero exit status of the build
	// is reported in the result, not as an error.
	Run(ctx context.Context, target types.Target) (*BuildResult, error)
}

// BuildResult describes a finished build invocation.
type BuildResult struct {
	Target      types.Target
	BuildTarget string
	ExitCode    int
	Duration    time.Duration
}

// Failed reports whether the build exited with a non-zero status.
func (r *BuildResult) Failed() bool {
	return r.ExitCode != 0
}

// BuildConfig configures the ninja build runner.
type BuildConfig struct {
	NinjaBinary string
	BuildDir    string
	CmdBuilder  CommandBuilder
	Stdout      io.Writer
	Stderr      io.Writer
	Log         log.Logger
}

type ninjaRunner struct {
	ninjaBinary string
	buildDir    string
	cmdBuilder  CommandBuilder
	stdout      io.Writer
	stderr      io.Writer
	log         log.Logger
}

// NewBuildRunner creates a BuildRunner invoking `ninja -C <buildDir> <target>`.
func NewBuildRunner(cfg BuildConfig) (BuildRunner, error) {
	if cfg.BuildDir == "" {
		return nil, errors.New("buildDir cannot be empty")
	}
	if cfg.CmdBuilder == nil {
		return nil, errors.New("cmdBuilder cannot be nil")
	}
	if cfg.Log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.NinjaBinary == "" {
		cfg.NinjaBinary = DefaultNinjaBinary
	}
	return &ninjaRunner{
		ninjaBinary: cfg.NinjaBinary,
		buildDir:    cfg.BuildDir,
		cmdBuilder:  cfg.CmdBuilder,
		stdout:      cfg.Stdout,
		stderr:      cfg.Stderr,
		log:         cfg.Log,
	}, nil
}

func (r *ninjaRunner) Run(ctx context.Context, target types.Target) (*BuildResult, error) {
	buildTarget := target.BuildTarget()
	if buildTarget == "" {
		return nil, fmt.Errorf("unknown target %q", target)
	}

	cmd, cleanup := r.cmdBuilder(ctx, r.ninjaBinary, ChangeDirFlag, r.buildDir, buildTarget)
	defer cleanup()
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.log.Info("Running integration tests", "target", target, "buildTarget", buildTarget, "buildDir", r.buildDir)
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	code, ok := exitCode(runErr)
	if !ok {
		return nil, fmt.Errorf("failed to run %s: %w", r.ninjaBinary, runErr)
	}

	result := &BuildResult{
		Target:      target,
		BuildTarget: buildTarget,
		ExitCode:    code,
		Duration:    duration,
	}
	if result.Failed() {
		// The build status is not enforced, the measurements that were produced are still reported.
		r.log.Warn("Build runner exited with non-zero status, continuing", "buildTarget", buildTarget, "exitCode", code)
	} else {
		r.log.Info("Integration tests finished", "buildTarget", buildTarget, "duration", duration)
	}
	return result, nil
}
