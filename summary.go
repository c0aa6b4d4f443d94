package perfrun

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-perfrun/metrics"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *RunResult) error
}

// ConsoleSummaryFormatter implements the ResultFormatter interface.
type ConsoleSummaryFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleSummaryFormatter creates a new ConsoleSummaryFormatter writing to out, or stdout if out is nil.
func NewConsoleSummaryFormatter(logger log.Logger, out io.Writer) *ConsoleSummaryFormatter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSummaryFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults prints a summary table of the run.
func (f *ConsoleSummaryFormatter) FormatResults(result *RunResult) error {
	if result == nil {
		return fmt.Errorf("no result to format")
	}
	f.logger.Debug("Printing run summary...")

	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Performance Run %s (%s)", result.Target, formatDuration(result.Duration)))

	t.AppendHeader(table.Row{"Step", "Detail", "Duration", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Detail", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
	})

	t.AppendRow(table.Row{"Run", result.RunID, "", ""})
	if result.Build != nil {
		t.AppendRow(table.Row{
			"Build",
			result.Build.BuildTarget,
			formatDuration(result.Build.Duration),
			buildStatus(result.Build.ExitCode),
		})
	}

	switch result.Mode {
	case metrics.ModeBaseline:
		t.AppendRow(table.Row{"Baseline", result.BaselinePath, "", generatorStatus(result)})
	case metrics.ModeSkipped:
		t.AppendRow(table.Row{"Report", "no baseline at " + result.BaselinePath, "", "SKIPPED"})
	case metrics.ModeCompare:
		t.AppendRow(table.Row{"Report", result.ReportPath, "", generatorStatus(result)})
		if result.Filter != nil {
			t.AppendSeparator()
			t.AppendRow(table.Row{"", "benchmark rows kept", "", result.Filter.Kept})
			t.AppendRow(table.Row{"", "benchmark rows dropped", "", result.Filter.Dropped})
			t.AppendRow(table.Row{"", "other lines", "", result.Filter.Passthrough})
		}
	}

	if isCleanRun(result) {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	}

	t.AppendFooter(table.Row{"TOTAL", "", formatDuration(result.Duration), result.Mode})
	t.Render()
	return nil
}

func isCleanRun(result *RunResult) bool {
	if result.Mode == metrics.ModeSkipped {
		return false
	}
	if result.Build != nil && result.Build.Failed() {
		return false
	}
	return result.Report == nil || result.Report.ExitCode == 0
}

func buildStatus(exitCode int) string {
	if exitCode == 0 {
		return "PASS"
	}
	return fmt.Sprintf("FAIL (exit %d)", exitCode)
}

func generatorStatus(result *RunResult) string {
	if result.Report == nil || result.Report.ExitCode == 0 {
		return "WRITTEN"
	}
	return fmt.Sprintf("WRITTEN (exit %d)", result.Report.ExitCode)
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
