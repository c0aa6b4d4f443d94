package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "perfrun"
)

// Run modes
const (
	ModeBaseline = "baseline"
	ModeCompare  = "compare"
	ModeSkipped  = "skipped"
)

var (
	Debug                bool = true
	validModes                = []string{ModeBaseline, ModeCompare, ModeSkipped}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of completed runs by target and mode",
	}, []string{
		"target",
		"mode",
	})

	buildDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "build_duration_seconds",
		Help:      "Duration of the last integration test build",
	}, []string{
		"run_id",
		"target",
	})

	buildExitCode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "build_exit_code",
		Help:      "Exit code of the last integration test build",
	}, []string{
		"run_id",
		"target",
	})

	buildFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "build_failures_total",
		Help:      "Count of builds that exited with a non-zero status",
	}, []string{
		"target",
	})

	reportRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "report_rows",
		Help:      "Number of report lines by outcome of the last comparison",
	}, []string{
		"run_id",
		"outcome",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordBuild(runID string, target string, exitCode int, duration time.Duration) {
	if Debug {
		log.Debug("metric set",
			"m", "build_duration_seconds",
			"run_id", runID,
			"target", target,
			"exit_code", exitCode,
			"duration", duration)
	}
	buildDuration.WithLabelValues(runID, target).Set(duration.Seconds())
	buildExitCode.WithLabelValues(runID, target).Set(float64(exitCode))
	if exitCode != 0 {
		buildFailuresTotal.WithLabelValues(target).Inc()
	}
}

func RecordReport(runID string, kept int, dropped int, passthrough int) {
	reportRows.WithLabelValues(runID, "kept").Set(float64(kept))
	reportRows.WithLabelValues(runID, "dropped").Set(float64(dropped))
	reportRows.WithLabelValues(runID, "passthrough").Set(float64(passthrough))
}

func RecordRun(target string, mode string) {
	if !isValidMode(mode) {
		log.Error("RecordRun - invalid mode", "mode", mode)
		return
	}
	runsTotal.WithLabelValues(target, mode).Inc()
}

// WriteTextfile writes all registered metrics to path in the Prometheus text format,
// for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

func isValidMode(mode string) bool {
	return slices.Contains(validModes, mode)
}
