package perfrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-perfrun/metrics"
	"github.com/ethereum-optimism/infra/op-perfrun/reporting"
	"github.com/ethereum-optimism/infra/op-perfrun/results"
	"github.com/ethereum-optimism/infra/op-perfrun/runner"
	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

// mockBuildRunner is a BuildRunner whose results are scripted by the test
type mockBuildRunner struct {
	mock.Mock
	onRun func()
}

func (m *mockBuildRunner) Run(ctx context.Context, target types.Target) (*runner.BuildResult, error) {
	args := m.Called(target)
	if m.onRun != nil {
		m.onRun()
	}
	result, _ := args.Get(0).(*runner.BuildResult)
	return result, args.Error(1)
}

// mockReportGenerator is a ReportGenerator whose results are scripted by the test
type mockReportGenerator struct {
	mock.Mock
	onSaveBaseline func(savePath string)
	onCompare      func(savePath, baselinePath string)
}

func (m *mockReportGenerator) SaveBaseline(ctx context.Context, savePath string) (*runner.ReportResult, error) {
	args := m.Called(savePath)
	if m.onSaveBaseline != nil {
		m.onSaveBaseline(savePath)
	}
	result, _ := args.Get(0).(*runner.ReportResult)
	return result, args.Error(1)
}

func (m *mockReportGenerator) Compare(ctx context.Context, savePath, baselinePath string) (*runner.ReportResult, error) {
	args := m.Called(savePath, baselinePath)
	if m.onCompare != nil {
		m.onCompare(savePath, baselinePath)
	}
	result, _ := args.Get(0).(*runner.ReportResult)
	return result, args.Error(1)
}

type testEnv struct {
	config  *Config
	build   *mockBuildRunner
	reports *mockReportGenerator
	out     *bytes.Buffer
	run     *perfRun
}

// setupTest creates a perfRun over a temporary work directory with mocked tools
func setupTest(t *testing.T, target types.Target, setBaseline bool) *testEnv {
	t.Helper()

	workDir := t.TempDir()
	layout, err := results.NewLayout(workDir, "results", "build")
	require.NoError(t, err)

	config := &Config{
		Target:      target,
		SetBaseline: setBaseline,
		WorkDir:     workDir,
		Layout:      layout,
		BuildDir:    filepath.Join(workDir, "build"),
		Log:         log.New(),
	}
	env := &testEnv{
		config:  config,
		build:   &mockBuildRunner{},
		reports: &mockReportGenerator{},
		out:     &bytes.Buffer{},
	}
	env.run = newPerfRun(config, "test", env.build, env.reports, env.out, func(error) {})
	return env
}

func (e *testEnv) expectBuild(target types.Target, exitCode int) {
	e.build.On("Run", target).Return(&runner.BuildResult{
		Target:      target,
		BuildTarget: target.BuildTarget(),
		ExitCode:    exitCode,
		Duration:    time.Second,
	}, nil).Once()
}

func (e *testEnv) writeBaseline(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.config.Layout.ResultsDir, 0755))
	require.NoError(t, os.WriteFile(e.config.Layout.BaselineJSON, []byte(`{"data": [{"name": "fft-bench"}]}`), 0644))
}

// expectCompare makes the generator write currentJSON and print stdout
func (e *testEnv) expectCompare(currentJSON string, stdout string) {
	layout := e.config.Layout
	e.reports.onCompare = func(savePath, baselinePath string) {
		_ = os.WriteFile(savePath, []byte(currentJSON), 0644)
	}
	e.reports.On("Compare", layout.CurrentJSON, layout.BaselineJSON).Return(&runner.ReportResult{Stdout: stdout}, nil).Once()
}

func TestRunComparativeReportExample(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.writeBaseline(t)
	env.expectBuild(types.TargetCI, 0)
	env.expectCompare(
		`{"data": [{"name": "fft-bench"}, {"name": "sort-bench"}]}`,
		"| header |\nBenchmarks | fft-bench | 1.2 |\nBenchmarks | unrelated-bench | 0.9 |\n",
	)

	result, err := env.run.Run(context.Background())
	require.NoError(t, err)

	content, err := os.ReadFile(env.config.Layout.CurrentReport)
	require.NoError(t, err)
	assert.Equal(t, "| header |\nBenchmarks | fft-bench | 1.2 |", string(content))

	assert.Equal(t, metrics.ModeCompare, result.Mode)
	assert.Equal(t, env.config.Layout.CurrentReport, result.ReportPath)
	require.NotNil(t, result.Filter)
	assert.Equal(t, reporting.FilterStats{Passthrough: 1, Kept: 1, Dropped: 1}, *result.Filter)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, PhaseDone, env.run.Phase())

	env.build.AssertExpectations(t)
	env.reports.AssertExpectations(t)
	env.reports.AssertNotCalled(t, "SaveBaseline", mock.Anything)
}

func TestRunWithoutBaselineSkipsReport(t *testing.T) {
	env := setupTest(t, types.TargetShort, false)
	env.expectBuild(types.TargetShort, 0)

	result, err := env.run.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, metrics.ModeSkipped, result.Mode)
	assert.Empty(t, result.ReportPath)

	// The results directory is still created, but nothing is written into it
	entries, err := os.ReadDir(env.config.Layout.ResultsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	env.build.AssertExpectations(t)
	env.reports.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
	env.reports.AssertNotCalled(t, "SaveBaseline", mock.Anything)
}

func TestRunSetBaseline(t *testing.T) {
	env := setupTest(t, types.TargetAll, true)
	env.expectBuild(types.TargetAll, 0)

	// A report from an earlier run must be left untouched
	require.NoError(t, os.MkdirAll(env.config.Layout.ResultsDir, 0755))
	require.NoError(t, os.WriteFile(env.config.Layout.CurrentReport, []byte("previous report"), 0644))

	baseline := `{"data": [{"name": "fft-bench", "cycles": 10}]}`
	env.reports.onSaveBaseline = func(savePath string) {
		_ = os.WriteFile(savePath, []byte(baseline), 0644)
	}
	env.reports.On("SaveBaseline", env.config.Layout.BaselineJSON).Return(&runner.ReportResult{}, nil).Twice()

	for i := 0; i < 2; i++ {
		result, err := env.run.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, metrics.ModeBaseline, result.Mode)
		assert.Nil(t, result.Filter)

		content, err := os.ReadFile(env.config.Layout.BaselineJSON)
		require.NoError(t, err)
		assert.Equal(t, baseline, string(content))

		if i == 0 {
			env.expectBuild(types.TargetAll, 0)
		}
	}

	report, err := os.ReadFile(env.config.Layout.CurrentReport)
	require.NoError(t, err)
	assert.Equal(t, "previous report", string(report))
	_, err = os.Stat(env.config.Layout.CurrentJSON)
	assert.True(t, os.IsNotExist(err))

	env.reports.AssertExpectations(t)
	env.reports.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
}

func TestRunInvokesBuildForEveryTarget(t *testing.T) {
	for _, target := range types.ValidTargets() {
		t.Run(target.String(), func(t *testing.T) {
			env := setupTest(t, target, false)
			env.expectBuild(target, 0)

			result, err := env.run.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, target, result.Target)
			assert.Equal(t, target.BuildTarget(), result.Build.BuildTarget)

			env.build.AssertExpectations(t)
			env.build.AssertNumberOfCalls(t, "Run", 1)
		})
	}
}

func TestRunCleansBuildResultsBeforeBuild(t *testing.T) {
	env := setupTest(t, types.TargetSpec, false)
	stale := filepath.Join(env.config.Layout.BuildResultsDir, "old", "perf.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0644))

	env.build.onRun = func() {
		_, err := os.Stat(env.config.Layout.BuildResultsDir)
		assert.True(t, os.IsNotExist(err), "build results must be removed before the build runs")
		assert.Equal(t, PhaseBuilding, env.run.Phase())
	}
	env.expectBuild(types.TargetSpec, 0)

	_, err := env.run.Run(context.Background())
	require.NoError(t, err)
}

func TestRunIgnoresBuildFailure(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.writeBaseline(t)
	env.expectBuild(types.TargetCI, 2)
	env.expectCompare(`{"data": [{"name": "fft-bench"}]}`, "Benchmarks | fft-bench | 1.0 |")

	result, err := env.run.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Build.Failed())
	assert.Equal(t, metrics.ModeCompare, result.Mode)

	content, err := os.ReadFile(env.config.Layout.CurrentReport)
	require.NoError(t, err)
	assert.Equal(t, "Benchmarks | fft-bench | 1.0 |", string(content))
}

func TestRunMalformedTableIsFatal(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.writeBaseline(t)
	env.expectBuild(types.TargetCI, 0)
	env.expectCompare(`{"data": [{"name": "fft-bench"}]}`, "| header |\nBenchmarks without cells\n")

	result, err := env.run.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, reporting.ErrMalformedRow))

	_, err = os.Stat(env.config.Layout.CurrentReport)
	assert.True(t, os.IsNotExist(err), "no report is written for a malformed table")
}

func TestRunMissingCurrentResults(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.writeBaseline(t)
	env.expectBuild(types.TargetCI, 0)
	// The generator prints a table but does not save the current results
	env.reports.On("Compare", env.config.Layout.CurrentJSON, env.config.Layout.BaselineJSON).
		Return(&runner.ReportResult{ExitCode: 1, Stdout: "| header |"}, nil).Once()

	_, err := env.run.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunBuildCannotStart(t *testing.T) {
	env := setupTest(t, types.TargetAll, false)
	env.build.On("Run", types.TargetAll).Return(nil, errors.New("exec: \"ninja\": executable file not found in $PATH")).Once()

	_, err := env.run.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run integration tests")
	env.reports.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
	env.reports.AssertNotCalled(t, "SaveBaseline", mock.Anything)
}

func TestStartSignalsShutdownAfterRun(t *testing.T) {
	env := setupTest(t, types.TargetShort, false)
	env.expectBuild(types.TargetShort, 1)

	shutdown := make(chan error, 1)
	env.run.shutdownCallback = func(err error) { shutdown <- err }
	env.config.MetricsTextfile = filepath.Join(t.TempDir(), "perfrun.prom")

	require.NoError(t, env.run.Start(context.Background()))
	select {
	case err := <-shutdown:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback was not called")
	}

	assert.False(t, env.run.Stopped())
	require.NoError(t, env.run.Stop(context.Background()))
	assert.True(t, env.run.Stopped())
	require.NoError(t, env.run.Stop(context.Background()))

	assert.Contains(t, env.out.String(), "run-short-integration-tests")
	assert.Contains(t, env.out.String(), "FAIL (exit 1)")
	_, err := os.Stat(env.config.MetricsTextfile)
	assert.NoError(t, err)
}

func TestStartFailOnBuildError(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.config.FailOnBuildError = true
	env.expectBuild(types.TargetCI, 1)
	env.run.shutdownCallback = func(error) {
		t.Error("shutdown callback must not be called when the run fails")
	}

	err := env.run.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsBuildFailureError(err))
	assert.False(t, IsRuntimeError(err))
}

func TestStartWrapsRuntimeErrors(t *testing.T) {
	env := setupTest(t, types.TargetCI, false)
	env.writeBaseline(t)
	env.expectBuild(types.TargetCI, 0)
	env.expectCompare(`{"data": []}`, "Benchmarks")

	err := env.run.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.True(t, errors.Is(err, reporting.ErrMalformedRow))
	assert.Empty(t, env.out.String(), "no summary is printed for a failed run")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", func(error) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestNewBuildsTools(t *testing.T) {
	env := setupTest(t, types.TargetAll, false)

	p, err := New(context.Background(), env.config, "test", func(error) {})
	require.NoError(t, err)
	assert.NotNil(t, p.build)
	assert.NotNil(t, p.reports)
	assert.Equal(t, PhaseIdle, p.Phase())
	assert.True(t, p.Stopped())
}
