package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-perfrun/results"
	"github.com/ethereum-optimism/infra/op-perfrun/runner"
	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

const EnvVarPrefix = "OP_PERFRUN"

const DefaultHealthzPort = 8080

var (
	Target = &cli.StringFlag{
		Name:     "target",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "TARGET"),
		Usage:    fmt.Sprintf("Which set of tests to run: {%s}", strings.Join(types.ValidTargetNames(), ", ")),
		Action: func(ctx *cli.Context, value string) error {
			return validateTarget(value)
		},
	}
	SetBaseline = &cli.BoolFlag{
		Name:    "set-baseline",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SET_BASELINE"),
		Usage:   "Store this run as the new baseline",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML file overriding the default paths and tools (eg. 'perfrun.yaml')",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKDIR"),
		Usage:   "Directory the build and the report generator run in. Relative paths are resolved against it",
	}
	ResultsDir = &cli.StringFlag{
		Name:    "results-dir",
		Value:   results.DefaultResultsDir,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULTS_DIR"),
		Usage:   "Directory holding the baseline and current performance results",
	}
	BuildDir = &cli.StringFlag{
		Name:    "build-dir",
		Value:   results.DefaultBuildDir,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BUILD_DIR"),
		Usage:   "Ninja build directory",
	}
	NinjaBinary = &cli.StringFlag{
		Name:    "ninja-binary",
		Value:   runner.DefaultNinjaBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NINJA_BINARY"),
		Usage:   "Path to the ninja binary used to run the integration tests",
	}
	PythonBinary = &cli.StringFlag{
		Name:    "python-binary",
		Value:   runner.DefaultPythonBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PYTHON_BINARY"),
		Usage:   "Path to the Python interpreter running the performance report script",
	}
	PerfReportScript = &cli.StringFlag{
		Name:    "perf-report-script",
		Value:   runner.DefaultPerfReportScript,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PERF_REPORT_SCRIPT"),
		Usage:   "Path to the performance report generator script",
	}
	FailOnBuildError = &cli.BoolFlag{
		Name:    "fail-on-build-error",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_BUILD_ERROR"),
		Usage:   "Exit with code 1 when the integration test build fails. By default the build status is ignored",
	}
	MetricsTextfile = &cli.StringFlag{
		Name:    "metrics.textfile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_TEXTFILE"),
		Usage:   "Write the run metrics to this file in the Prometheus text format",
	}
	HealthzPort = &cli.IntFlag{
		Name:    "healthz.port",
		Value:   DefaultHealthzPort,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_PORT"),
		Usage:   "Port of the healthz server, started together with the metrics server",
	}
)

var requiredFlags = []cli.Flag{
	Target,
}

var optionalFlags = []cli.Flag{
	SetBaseline,
	ConfigFile,
	WorkDir,
	ResultsDir,
	BuildDir,
	NinjaBinary,
	PythonBinary,
	PerfReportScript,
	FailOnBuildError,
	MetricsTextfile,
	HealthzPort,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}

func validateTarget(value string) error {
	_, err := types.ParseTarget(value)
	return err
}
