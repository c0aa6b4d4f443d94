package perfrun

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-perfrun/metrics"
	"github.com/ethereum-optimism/infra/op-perfrun/reporting"
	"github.com/ethereum-optimism/infra/op-perfrun/runner"
	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

func TestConsoleSummaryFormatter(t *testing.T) {
	build := &runner.BuildResult{
		Target:      types.TargetCI,
		BuildTarget: "run-ci-integration-tests",
		Duration:    2500 * time.Millisecond,
	}

	tests := []struct {
		name     string
		result   *RunResult
		contains []string
	}{
		{
			name: "comparative report",
			result: &RunResult{
				RunID:      "run-compare",
				Target:     types.TargetCI,
				Mode:       metrics.ModeCompare,
				Build:      build,
				Report:     &runner.ReportResult{},
				Filter:     &reporting.FilterStats{Kept: 7, Dropped: 3, Passthrough: 2},
				ReportPath: "/r/current_perf_results.md",
				Duration:   3 * time.Second,
			},
			contains: []string{"run-compare", "run-ci-integration-tests", "2.5s", "PASS", "WRITTEN", "benchmark rows kept", "7"},
		},
		{
			name: "baseline",
			result: &RunResult{
				RunID:        "run-baseline",
				Target:       types.TargetAll,
				Mode:         metrics.ModeBaseline,
				Build:        build,
				Report:       &runner.ReportResult{ExitCode: 2},
				BaselinePath: "/r/baseline_perf_results.json",
			},
			contains: []string{"run-baseline", "Baseline", "/r/baseline_perf_results.json", "WRITTEN (exit 2)"},
		},
		{
			name: "skipped with failed build",
			result: &RunResult{
				RunID:  "run-skipped",
				Target: types.TargetShort,
				Mode:   metrics.ModeSkipped,
				Build: &runner.BuildResult{
					Target:      types.TargetShort,
					BuildTarget: "run-short-integration-tests",
					ExitCode:    1,
				},
				BaselinePath: "/r/baseline_perf_results.json",
			},
			contains: []string{"run-skipped", "FAIL (exit 1)", "SKIPPED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := NewConsoleSummaryFormatter(log.New(), &out).FormatResults(tt.result)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestConsoleSummaryFormatterNilResult(t *testing.T) {
	err := NewConsoleSummaryFormatter(log.New(), &bytes.Buffer{}).FormatResults(nil)
	assert.Error(t, err)
}

func TestIsCleanRun(t *testing.T) {
	ok := &runner.BuildResult{}
	failed := &runner.BuildResult{ExitCode: 1}

	assert.True(t, isCleanRun(&RunResult{Mode: metrics.ModeCompare, Build: ok, Report: &runner.ReportResult{}}))
	assert.True(t, isCleanRun(&RunResult{Mode: metrics.ModeBaseline, Build: ok}))
	assert.False(t, isCleanRun(&RunResult{Mode: metrics.ModeSkipped, Build: ok}))
	assert.False(t, isCleanRun(&RunResult{Mode: metrics.ModeCompare, Build: failed}))
	assert.False(t, isCleanRun(&RunResult{Mode: metrics.ModeCompare, Build: ok, Report: &runner.ReportResult{ExitCode: 1}}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.0s", formatDuration(0))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "90.0s", formatDuration(90*time.Second))
}
