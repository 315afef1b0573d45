package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	pyshake "github.com/pyshake/pyshake"
	"github.com/pyshake/pyshake/collector"
	"github.com/pyshake/pyshake/exitcodes"
	"github.com/pyshake/pyshake/flags"
	"github.com/pyshake/pyshake/metrics"
)

var (
	Version   = "v0.2.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "pyshake"
	app.Usage = "A tool for working with randomly-failing tests"
	app.Description = "pyshake runs a suspect list of pytest tests across repeated cycles " +
		"and reports which ones fail reliably, pass reliably, or flap"
	app.ArgsUsage = "TESTS_FILE [-- PYTEST_ARGS...]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var specErr *collector.SpecNotFoundError
		if errors.As(err, &specErr) {
			// Unresolvable test identifiers get their own exit code so CI
			// wrappers can tell them apart from engine failures.
			cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.SpecNotFound))
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
	}

	// Telemetry is opt-in via the standard OTLP environment variables.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName(app.Name),
			otelconfig.WithServiceVersion(app.Version),
		)
		if err != nil {
			log.Warn("Failed to set up open telemetry", "message", err)
		} else {
			defer otelShutdown()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := newLogger(ctx.String(flags.LogLevel.Name))
	log.SetDefault(logger)
	metrics.Debug = ctx.Bool(flags.Debug.Name)

	cfg, err := pyshake.NewConfig(ctx, logger)
	if err != nil {
		return pyshake.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	shaker, err := pyshake.New(cfg, Version)
	if err != nil {
		return pyshake.NewRuntimeError(fmt.Errorf("failed to create shaker: %w", err))
	}
	return shaker.Run(ctx.Context)
}

// newLogger builds the terminal logger for the requested level.
func newLogger(level string) log.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true))
}
