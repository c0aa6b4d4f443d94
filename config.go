package perfrun

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-perfrun/flags"
	"github.com/ethereum-optimism/infra/op-perfrun/results"
	"github.com/ethereum-optimism/infra/op-perfrun/types"
)

// Config holds the application configuration
type Config struct {
	Target           types.Target
	SetBaseline      bool
	WorkDir          string         // Directory the external tools run in
	Layout           results.Layout // Results, baseline and build-results paths
	BuildDir         string         // Ninja build directory
	NinjaBinary      string
	PythonBinary     string
	PerfReportScript string
	FailOnBuildError bool   // Enforce the build exit status, off by default
	MetricsTextfile  string // Write metrics here after the run, if set
	Metrics          opmetrics.CLIConfig
	HealthzPort      int
	Log              log.Logger
}

// FileConfig is the layout of the optional YAML config file.
// Empty values leave the flag defaults in place.
type FileConfig struct {
	WorkDir          string `yaml:"workdir"`
	ResultsDir       string `yaml:"results_dir"`
	BuildDir         string `yaml:"build_dir"`
	NinjaBinary      string `yaml:"ninja_binary"`
	PythonBinary     string `yaml:"python_binary"`
	PerfReportScript string `yaml:"perf_report_script"`
	FailOnBuildError *bool  `yaml:"fail_on_build_error"`
	MetricsTextfile  string `yaml:"metrics_textfile"`
}

// LoadFileConfig reads a YAML config file. Unknown keys are rejected.
func LoadFileConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty file decodes to io.EOF and means "no overrides"
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	target, err := types.ParseTarget(ctx.String(flags.Target.Name))
	if err != nil {
		return nil, err
	}

	fileCfg := &FileConfig{}
	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		fileCfg, err = LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
	}

	workDir, err := filepath.Abs(stringSetting(ctx, flags.WorkDir, fileCfg.WorkDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory: %w", err)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return nil, fmt.Errorf("work directory '%s' is not accessible: %w", workDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("work directory '%s' is not a directory", workDir)
	}

	resultsDir := stringSetting(ctx, flags.ResultsDir, fileCfg.ResultsDir)
	buildDir := stringSetting(ctx, flags.BuildDir, fileCfg.BuildDir)
	layout, err := results.NewLayout(workDir, resultsDir, buildDir)
	if err != nil {
		return nil, err
	}
	absBuildDir, err := results.ResolvePath(workDir, buildDir)
	if err != nil {
		return nil, err
	}

	failOnBuildError := ctx.Bool(flags.FailOnBuildError.Name)
	if !ctx.IsSet(flags.FailOnBuildError.Name) && fileCfg.FailOnBuildError != nil {
		failOnBuildError = *fileCfg.FailOnBuildError
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		Target:           target,
		SetBaseline:      ctx.Bool(flags.SetBaseline.Name),
		WorkDir:          workDir,
		Layout:           layout,
		BuildDir:         absBuildDir,
		NinjaBinary:      stringSetting(ctx, flags.NinjaBinary, fileCfg.NinjaBinary),
		PythonBinary:     stringSetting(ctx, flags.PythonBinary, fileCfg.PythonBinary),
		PerfReportScript: stringSetting(ctx, flags.PerfReportScript, fileCfg.PerfReportScript),
		FailOnBuildError: failOnBuildError,
		MetricsTextfile:  stringSetting(ctx, flags.MetricsTextfile, fileCfg.MetricsTextfile),
		Metrics:          metricsCfg,
		HealthzPort:      ctx.Int(flags.HealthzPort.Name),
		Log:              log,
	}, nil
}

// stringSetting resolves a setting: an explicitly set flag wins over the config file,
// which wins over the flag default.
func stringSetting(ctx *cli.Context, flag *cli.StringFlag, fileValue string) string {
	if ctx.IsSet(flag.Name) || fileValue == "" {
		return ctx.String(flag.Name)
	}
	return fileValue
}
