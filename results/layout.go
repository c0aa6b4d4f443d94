// Package results owns the on-disk state of op-perfrun: the results directory with the
// baseline and current measurement files, and the build-results directory that is
// cleared before every build.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

const (
	DefaultResultsDir = "../results_integration"
	DefaultBuildDir   = "build"

	BaselineFileName      = "baseline_perf_results.json"
	CurrentFileName       = "current_perf_results.json"
	CurrentReportFileName = "current_perf_results.md"

	// BuildResultsSubdir is where the integration test targets write their results, relative to the build dir.
	BuildResultsSubdir = "tools/integration/results"
)

// Layout holds the absolute paths of every file op-perfrun reads or writes.
type Layout struct {
	ResultsDir      string
	BaselineJSON    string
	CurrentJSON     string
	CurrentReport   string
	BuildResultsDir string
}

// NewLayout resolves resultsDir and buildDir against workDir.
func NewLayout(workDir, resultsDir, buildDir string) (Layout, error) {
	if resultsDir == "" {
		return Layout{}, errors.New("results directory cannot be empty")
	}
	if buildDir == "" {
		return Layout{}, errors.New("build directory cannot be empty")
	}
	absResults, err := ResolvePath(workDir, resultsDir)
	if err != nil {
		return Layout{}, err
	}
	absBuild, err := ResolvePath(workDir, buildDir)
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		ResultsDir:      absResults,
		BaselineJSON:    filepath.Join(absResults, BaselineFileName),
		CurrentJSON:     filepath.Join(absResults, CurrentFileName),
		CurrentReport:   filepath.Join(absResults, CurrentReportFileName),
		BuildResultsDir: filepath.Join(absBuild, BuildResultsSubdir),
	}, nil
}

// ResolvePath makes path absolute, interpreting relative paths against workDir.
func ResolvePath(workDir, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for '%s': %w", path, err)
	}
	return abs, nil
}

// EnsureResultsDir creates the results directory if it does not exist yet.
func (l Layout) EnsureResultsDir() error {
	if err := os.MkdirAll(l.ResultsDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory %s: %w", l.ResultsDir, err)
	}
	return nil
}

// CleanBuildResults removes the results left behind by a previous build.
// A missing directory is not an error.
func (l Layout) CleanBuildResults() error {
	if err := os.RemoveAll(l.BuildResultsDir); err != nil {
		return fmt.Errorf("failed to remove build results %s: %w", l.BuildResultsDir, err)
	}
	return nil
}

// BaselineExists reports whether a baseline has been recorded.
func (l Layout) BaselineExists() bool {
	_, err := os.Stat(l.BaselineJSON)
	return err == nil
}

// LoadBenchmarkNames reads a result set file and returns the names of its benchmarks.
func LoadBenchmarkNames(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file %s: %w", path, err)
	}
	var set types.BenchmarkResultSet
	if err := json.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	return set.NameSet(), nil
}

// WriteReport writes the report lines joined by newlines, replacing any previous report.
func WriteReport(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
