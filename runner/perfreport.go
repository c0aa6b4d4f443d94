package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
)

var _ ReportGenerator = (*perfReportGenerator)(nil)

// ReportGenerator drives the performance report script.
type ReportGenerator interface {
	// SaveBaseline stores the measurements of the last build at savePath.
	// The script output is streamed through.
	SaveBaseline(ctx context.Context, savePath string) (*ReportResult, error)

	// Compare stores the measurements at savePath and compares them with baselinePath.
	// The comparison table printed by the script is returned in the result.
	Compare(ctx context.Context, savePath, baselinePath string) (*ReportResult, error)
}

// ReportResult describes a finished report generator invocation.
type ReportResult struct {
	ExitCode int
	// Stdout is only set for comparisons
	Stdout string
	Stderr string
}

// ReportConfig configures the report generator.
type ReportConfig struct {
	PythonBinary string
	Script       string
	CmdBuilder   CommandBuilder
	Stdout       io.Writer
	Stderr       io.Writer
	Log          log.Logger
}

type perfReportGenerator struct {
	pythonBinary string
	script       string
	cmdBuilder   CommandBuilder
	stdout       io.Writer
	stderr       io.Writer
	log          log.Logger
}

// NewReportGenerator creates a ReportGenerator running `python3 <script>`.
func NewReportGenerator(cfg ReportConfig) (ReportGenerator, error) {
	if cfg.CmdBuilder == nil {
		return nil, errors.New("cmdBuilder cannot be nil")
	}
	if cfg.Log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.PythonBinary == "" {
		cfg.PythonBinary = DefaultPythonBinary
	}
	if cfg.Script == "" {
		cfg.Script = DefaultPerfReportScript
	}
	return &perfReportGenerator{
		pythonBinary: cfg.PythonBinary,
		script:       cfg.Script,
		cmdBuilder:   cfg.CmdBuilder,
		stdout:       cfg.Stdout,
		stderr:       cfg.Stderr,
		log:          cfg.Log,
	}, nil
}

func (g *perfReportGenerator) SaveBaseline(ctx context.Context, savePath string) (*ReportResult, error) {
	if savePath == "" {
		return nil, errors.New("savePath cannot be empty")
	}
	cmd, cleanup := g.cmdBuilder(ctx, g.pythonBinary, g.script, SaveFlag, savePath)
	defer cleanup()
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr

	runErr := cmd.Run()
	code, ok := exitCode(runErr)
	if !ok {
		return nil, fmt.Errorf("failed to run report generator %s: %w", g.script, runErr)
	}
	if code != 0 {
		g.log.Warn("Report generator exited with non-zero status", "script", g.script, "exitCode", code)
	}
	return &ReportResult{ExitCode: code}, nil
}

func (g *perfReportGenerator) Compare(ctx context.Context, savePath, baselinePath string) (*ReportResult, error) {
	if savePath == "" {
		return nil, errors.New("savePath cannot be empty")
	}
	if baselinePath == "" {
		return nil, errors.New("baselinePath cannot be empty")
	}
	cmd, cleanup := g.cmdBuilder(ctx, g.pythonBinary, g.script, SaveFlag, savePath, CompareFlag, baselinePath)
	defer cleanup()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	code, ok := exitCode(runErr)
	if !ok {
		return nil, fmt.Errorf("failed to run report generator %s: %w", g.script, runErr)
	}
	if code != 0 {
		g.log.Warn("Report generator exited with non-zero status", "script", g.script, "exitCode", code, "stderr", stderrBuf.String())
	} else if stderrBuf.Len() > 0 {
		g.log.Debug("Report generator stderr", "stderr", stderrBuf.String())
	}

	return &ReportResult{
		ExitCode: code,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
	}, nil
}
