package perfrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-perfrun/metrics"
	"github.com/ethereum-optimism/infra/op-perfrun/reporting"
	"github.com/ethereum-optimism/infra/op-perfrun/results"
	"github.com/ethereum-optimism/infra/op-perfrun/runner"
	"github.com/ethereum-optimism/infra/op-perfrun/service"
	"github.com/ethereum-optimism/infra/op-perfrun/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// Phases reported on the healthz endpoint
const (
	PhaseIdle      = "idle"
	PhasePreparing = "preparing"
	PhaseBuilding  = "building"
	PhaseReporting = "reporting"
	PhaseDone      = "done"
)

// perfRun implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &perfRun{}

// perfRun runs one set of integration tests and records or compares their performance.
type perfRun struct {
	config  *Config
	version string
	build   runner.BuildRunner
	reports runner.ReportGenerator
	tracer  trace.Tracer
	out     io.Writer // console summary
	result  *RunResult

	phase   atomic.Value
	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// RunResult describes a completed run.
type RunResult struct {
	RunID    string
	Target   types.Target
	Mode     string // one of metrics.ModeBaseline, metrics.ModeCompare, metrics.ModeSkipped
	Build    *runner.BuildResult
	Report   *runner.ReportResult
	Filter   *reporting.FilterStats
	Duration time.Duration

	BaselinePath string
	ReportPath   string // only set when a comparative report was written
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*perfRun, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating perfrun with config",
		"target", config.Target,
		"setBaseline", config.SetBaseline,
		"workDir", config.WorkDir,
		"resultsDir", config.Layout.ResultsDir,
		"buildDir", config.BuildDir)

	cmdBuilder := runner.NewCommandBuilder(config.WorkDir)
	build, err := runner.NewBuildRunner(runner.BuildConfig{
		NinjaBinary: config.NinjaBinary,
		BuildDir:    config.BuildDir,
		CmdBuilder:  cmdBuilder,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Log:         config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create build runner: %w", err)
	}

	reports, err := runner.NewReportGenerator(runner.ReportConfig{
		PythonBinary: config.PythonBinary,
		Script:       config.PerfReportScript,
		CmdBuilder:   cmdBuilder,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Log:          config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report generator: %w", err)
	}

	return newPerfRun(config, version, build, reports, os.Stdout, shutdownCallback), nil
}

func newPerfRun(config *Config, version string, build runner.BuildRunner, reports runner.ReportGenerator,
	out io.Writer, shutdownCallback func(error)) *perfRun {
	p := &perfRun{
		config:           config,
		version:          version,
		build:            build,
		reports:          reports,
		tracer:           otel.Tracer("perfrun"),
		out:              out,
		shutdownCallback: shutdownCallback,
	}
	p.phase.Store(PhaseIdle)
	return p
}

// Start performs the run and then signals the application to shut down.
// Start implements the cliapp.Lifecycle interface.
func (p *perfRun) Start(ctx context.Context) error {
	p.running.Store(true)

	if p.config.Metrics.Enabled {
		svc := service.New(service.Config{
			HealthzHost: p.config.Metrics.ListenAddr,
			HealthzPort: p.config.HealthzPort,
			MetricsHost: p.config.Metrics.ListenAddr,
			MetricsPort: p.config.Metrics.ListenPort,
			Phase:       p.Phase,
		})
		svc.Start(ctx)
		defer svc.Shutdown()
	}

	result, err := p.Run(ctx)
	if err != nil {
		metrics.RecordErrorDetails("run failed", err)
		p.config.Log.Error("Run failed", "target", p.config.Target, "error", err)
		return NewRuntimeError(err)
	}
	p.result = result

	if err := NewConsoleSummaryFormatter(p.config.Log, p.out).FormatResults(result); err != nil {
		p.config.Log.Warn("Failed to print run summary", "error", err)
	}

	if p.config.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(p.config.MetricsTextfile); err != nil {
			metrics.RecordErrorDetails("metrics textfile", err)
			p.config.Log.Warn("Failed to write metrics textfile", "path", p.config.MetricsTextfile, "error", err)
		}
	}

	if p.config.FailOnBuildError && result.Build.Failed() {
		p.config.Log.Warn("Build failed and --fail-on-build-error is set, returning exit code 1")
		return NewBuildFailureError(result.Build.BuildTarget, result.Build.ExitCode)
	}

	go func() {
		p.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (p *perfRun) Stop(ctx context.Context) error {
	if !p.running.Load() {
		p.config.Log.Debug("perfrun already stopped, nothing to do")
		return nil
	}
	p.running.Store(false)
	p.config.Log.Info("perfrun stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (p *perfRun) Stopped() bool {
	return !p.running.Load()
}

// Phase returns what the run is currently doing.
func (p *perfRun) Phase() string {
	return p.phase.Load().(string)
}

// Run clears stale results, runs the selected tests and then either records a
// new baseline or writes the comparative report.
func (p *perfRun) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	target := p.config.Target
	layout := p.config.Layout
	result := &RunResult{
		RunID:        uuid.New().String(),
		Target:       target,
		BaselinePath: layout.BaselineJSON,
	}
	logger := p.config.Log.New("run_id", result.RunID)

	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("run %s", target),
		trace.WithAttributes(attribute.String("target", target.String()), attribute.Bool("baseline", p.config.SetBaseline)))
	defer span.End()
	defer p.phase.Store(PhaseDone)

	p.phase.Store(PhasePreparing)
	if err := layout.EnsureResultsDir(); err != nil {
		return nil, err
	}
	if err := layout.CleanBuildResults(); err != nil {
		// Same as a missing directory: the build starts from whatever is left
		logger.Warn("Failed to clean build results", "path", layout.BuildResultsDir, "error", err)
	}

	p.phase.Store(PhaseBuilding)
	build, err := p.runBuild(ctx, target)
	if err != nil {
		return nil, err
	}
	result.Build = build
	metrics.RecordBuild(result.RunID, target.String(), build.ExitCode, build.Duration)

	p.phase.Store(PhaseReporting)
	if p.config.SetBaseline {
		err = p.generateBaseline(ctx, logger, result)
	} else {
		err = p.generateComparativeReport(ctx, logger, result)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	metrics.RecordRun(target.String(), result.Mode)
	logger.Info("Run completed", "target", target, "mode", result.Mode, "duration", result.Duration)
	return result, nil
}

func (p *perfRun) runBuild(ctx context.Context, target types.Target) (*runner.BuildResult, error) {
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("build %s", target.BuildTarget()))
	defer span.End()

	build, err := p.build.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to run integration tests: %w", err)
	}
	return build, nil
}

func (p *perfRun) generateBaseline(ctx context.Context, logger log.Logger, result *RunResult) error {
	ctx, span := p.tracer.Start(ctx, "baseline")
	defer span.End()

	logger.Info("Generating new baseline", "path", p.config.Layout.BaselineJSON)
	report, err := p.reports.SaveBaseline(ctx, p.config.Layout.BaselineJSON)
	if err != nil {
		return fmt.Errorf("failed to generate baseline: %w", err)
	}
	result.Report = report
	result.Mode = metrics.ModeBaseline
	return nil
}

func (p *perfRun) generateComparativeReport(ctx context.Context, logger log.Logger, result *RunResult) error {
	layout := p.config.Layout
	if !layout.BaselineExists() {
		logger.Warn("No baseline found. Run with --set-baseline first.", "path", layout.BaselineJSON)
		result.Mode = metrics.ModeSkipped
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "compare")
	defer span.End()

	logger.Info("Generating comparative report...", "baseline", layout.BaselineJSON)
	report, err := p.reports.Compare(ctx, layout.CurrentJSON, layout.BaselineJSON)
	if err != nil {
		return fmt.Errorf("failed to generate comparative report: %w", err)
	}
	result.Report = report

	// Only the benchmarks of this run are kept in the table
	benchmarks, err := results.LoadBenchmarkNames(layout.CurrentJSON)
	if err != nil {
		return err
	}

	filtered, err := reporting.FilterReport(reporting.SplitLines(report.Stdout), benchmarks)
	if err != nil {
		return fmt.Errorf("failed to filter comparative report: %w", err)
	}
	if err := results.WriteReport(layout.CurrentReport, filtered.Lines); err != nil {
		return err
	}

	result.Mode = metrics.ModeCompare
	result.Filter = &filtered.Stats
	result.ReportPath = layout.CurrentReport
	metrics.RecordReport(result.RunID, filtered.Stats.Kept, filtered.Stats.Dropped, filtered.Stats.Passthrough)
	logger.Info("Comparative report written",
		"path", layout.CurrentReport,
		"benchmarks", len(benchmarks),
		"kept", filtered.Stats.Kept,
		"dropped", filtered.Stats.Dropped)
	return nil
}
