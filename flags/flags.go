package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "PYSHAKE"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Python = &cli.StringFlag{
		Name:    "python",
		Aliases: []string{"P"},
		Value:   "python",
		EnvVars: prefixEnvVars("PYTHON"),
		Usage:   "Path to the python executable used to run pytest",
	}
	JSONPath = &cli.StringFlag{
		Name:    "json-path",
		Aliases: []string{"J"},
		Value:   "",
		EnvVars: prefixEnvVars("JSON_PATH"),
		Usage: "File path pytest writes its JSON report to; by default a temporary " +
			"file is used and deleted after the run. A caller-supplied path is kept, " +
			"holding the final cycle's report",
	}
	Cycles = &cli.IntFlag{
		Name:    "cycles",
		Aliases: []string{"N"},
		Value:   1,
		EnvVars: prefixEnvVars("CYCLES"),
		Usage:   "How many times to run the tests",
	}
	FailureFocus = &cli.BoolFlag{
		Name:    "failure-focus",
		Aliases: []string{"F"},
		EnvVars: prefixEnvVars("FAILURE_FOCUS"),
		Usage:   "As soon as a test passes once, don't run it again in later cycles",
	}
	ReportCycles = &cli.BoolFlag{
		Name:    "report-cycles",
		Aliases: []string{"R"},
		EnvVars: prefixEnvVars("REPORT_CYCLES"),
		Usage: "When reporting results, also report each test's result for each " +
			"cycle and the time spent in that test across all cycles",
	}
	Echo = &cli.BoolFlag{
		Name:    "echo",
		Aliases: []string{"e"},
		EnvVars: prefixEnvVars("ECHO"),
		Usage:   "Echo pytest output as it runs; default is to suppress it",
	}
	EchoFinal = &cli.BoolFlag{
		Name:    "echo-final",
		Aliases: []string{"E"},
		EnvVars: prefixEnvVars("ECHO_FINAL"),
		Usage: "Echo pytest output of the final cycle only; with a single cycle " +
			"this is equivalent to --echo",
	}
	PytestArgs = &cli.StringFlag{
		Name:    "pytest-args",
		EnvVars: prefixEnvVars("PYTEST_ARGS"),
		Usage:   "Extra arguments passed through to pytest (shell-style quoting, $VARs expanded)",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   "",
		EnvVars: prefixEnvVars("WORKDIR"),
		Usage:   "Directory test module paths are resolved under and pytest runs in",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory to store per-cycle pytest output and report snapshots",
	}
	MonitorAddr = &cli.StringFlag{
		Name:    "monitor-addr",
		Value:   "",
		EnvVars: prefixEnvVars("MONITOR_ADDR"),
		Usage:   "Address to serve /healthz and /metrics on for the duration of the run",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to an optional YAML config file supplying flag defaults",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: debug, info, warn, error",
	}
	Debug = &cli.BoolFlag{
		Name:    "debug",
		EnvVars: prefixEnvVars("DEBUG"),
		Usage:   "Activate debug output (including the pytest command line)",
	}
)

var Flags = []cli.Flag{
	Python,
	JSONPath,
	Cycles,
	FailureFocus,
	ReportCycles,
	Echo,
	EchoFinal,
	PytestArgs,
	WorkDir,
	LogDir,
	MonitorAddr,
	ConfigFile,
	LogLevel,
	Debug,
}

// CheckMutuallyExclusive rejects flag combinations the engine cannot honor.
func CheckMutuallyExclusive(ctx *cli.Context) error {
	if ctx.Bool(Echo.Name) && ctx.Bool(EchoFinal.Name) {
		return fmt.Errorf("flags --%s and --%s are mutually exclusive", Echo.Name, EchoFinal.Name)
	}
	return nil
}
