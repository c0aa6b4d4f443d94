package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	perfrun "github.com/ethereum-optimism/infra/op-perfrun"
	"github.com/ethereum-optimism/infra/op-perfrun/exitcodes"
	"github.com/ethereum-optimism/infra/op-perfrun/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

const description = `Builds and runs the integration tests and records their performance.

Run from inside the project directory. Results are written to ../results_integration by default.

With --set-baseline the run is stored as baseline_perf_results.json. Otherwise the run is stored
as current_perf_results.json and compared against the baseline; the comparison table, restricted
to the benchmarks of this run, is written to current_perf_results.md.

It is recommended to set the baseline with --target all on the main branch.`

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	code := runApp(ctx, app, os.Args)
	shutdown()
	os.Exit(code)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-perfrun"
	app.Usage = "Integration test performance runner"
	app.Description = description
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// runApp runs the app and returns the exit status. Errors the ExitErrHandler never sees,
// such as flag validation and missing required flags, are written to the app's ErrWriter.
func runApp(ctx context.Context, app *cli.App, args []string) int {
	err := app.RunContext(ctx, args)
	if err == nil {
		return exitcodes.Success
	}
	errWriter := app.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	fmt.Fprintf(errWriter, "error: %v\n", err)
	return exitCode(err)
}

// exitCode maps an application error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case perfrun.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case perfrun.IsBuildFailureError(err):
		return exitcodes.BuildFailure
	default:
		// Usage errors and anything unclassified
		return exitcodes.BuildFailure
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := perfrun.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, perfrun.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "target", cfg.Target, "setBaseline", cfg.SetBaseline, "layout", cfg.Layout)

	runner, err := perfrun.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, perfrun.NewRuntimeError(fmt.Errorf("failed to create perfrun: %w", err))
	}

	return runner, nil
}
