package pyshake

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pyshake/pyshake/flags"
	"github.com/pyshake/pyshake/runner"
)

// DefaultConfigFile is consulted when --config is not given.
const DefaultConfigFile = ".pyshake.yaml"

// Config holds the application configuration
type Config struct {
	TestsFile       string
	WorkDir         string // Directory module paths resolve under and pytest runs in
	Python          string
	RequestedCycles int
	FailureFocus    bool
	Echo            runner.EchoMode
	ReportCycles    bool // Report per-cycle outcomes and timings in the summary
	ResultsPath     string
	KeepResults     bool // Caller supplied the results path, so keep the file
	ExtraArgs       []string
	LogDir          string
	MonitorAddr     string
	Debug           bool
	Log             log.Logger
}

// fileConfig is the shape of the optional YAML config file. Values act as
// defaults; explicitly-set CLI flags win.
type fileConfig struct {
	Python      string `yaml:"python"`
	Cycles      int    `yaml:"cycles"`
	PytestArgs  string `yaml:"pytest_args"`
	LogDir      string `yaml:"log_dir"`
	MonitorAddr string `yaml:"monitor_addr"`
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckMutuallyExclusive(ctx); err != nil {
		return nil, err
	}

	args := ctx.Args()
	if args.Len() == 0 {
		return nil, errors.New("missing TESTS_FILE argument")
	}
	testsFile := args.First()

	fileCfg, err := loadFileConfig(ctx.String(flags.ConfigFile.Name))
	if err != nil {
		return nil, err
	}

	python := ctx.String(flags.Python.Name)
	if !ctx.IsSet(flags.Python.Name) && fileCfg.Python != "" {
		python = fileCfg.Python
	}

	cycles := ctx.Int(flags.Cycles.Name)
	if !ctx.IsSet(flags.Cycles.Name) && fileCfg.Cycles > 0 {
		cycles = fileCfg.Cycles
	}
	if cycles < 1 {
		return nil, fmt.Errorf("invalid cycle count %d: must be positive", cycles)
	}

	echo := runner.EchoNone
	if ctx.Bool(flags.Echo.Name) {
		echo = runner.EchoAll
	} else if ctx.Bool(flags.EchoFinal.Name) {
		echo = runner.EchoFinal
	}

	pytestArgs := ctx.String(flags.PytestArgs.Name)
	if !ctx.IsSet(flags.PytestArgs.Name) && fileCfg.PytestArgs != "" {
		pytestArgs = fileCfg.PytestArgs
	}
	// Flag parsing stops at the TESTS_FILE positional, so a "--" separator
	// after it survives into the tail and must not reach pytest.
	tail := args.Tail()
	if len(tail) > 0 && tail[0] == "--" {
		tail = tail[1:]
	}
	extraArgs, err := buildExtraArgs(pytestArgs, tail)
	if err != nil {
		return nil, err
	}

	logDir := ctx.String(flags.LogDir.Name)
	if !ctx.IsSet(flags.LogDir.Name) && fileCfg.LogDir != "" {
		logDir = fileCfg.LogDir
	}
	monitorAddr := ctx.String(flags.MonitorAddr.Name)
	if !ctx.IsSet(flags.MonitorAddr.Name) && fileCfg.MonitorAddr != "" {
		monitorAddr = fileCfg.MonitorAddr
	}

	resultsPath := ctx.String(flags.JSONPath.Name)

	return &Config{
		TestsFile:       testsFile,
		WorkDir:         ctx.String(flags.WorkDir.Name),
		Python:          python,
		RequestedCycles: cycles,
		FailureFocus:    ctx.Bool(flags.FailureFocus.Name),
		Echo:            echo,
		ReportCycles:    ctx.Bool(flags.ReportCycles.Name),
		ResultsPath:     resultsPath,
		KeepResults:     resultsPath != "",
		ExtraArgs:       extraArgs,
		LogDir:          logDir,
		MonitorAddr:     monitorAddr,
		Debug:           ctx.Bool(flags.Debug.Name),
		Log:             logger,
	}, nil
}

// buildExtraArgs merges the --pytest-args flag (shell-style quoting) with
// everything after the "--" terminator. Both sources get $VAR expansion, and
// pass-through args split on whitespace after expansion, in case a variable
// held several flags.
func buildExtraArgs(pytestArgs string, passthrough []string) ([]string, error) {
	var extra []string
	if pytestArgs != "" {
		parsed, err := shellwords.Parse(os.ExpandEnv(pytestArgs))
		if err != nil {
			return nil, fmt.Errorf("invalid pytest args %q: %w", pytestArgs, err)
		}
		extra = append(extra, parsed...)
	}
	for _, arg := range passthrough {
		extra = append(extra, strings.Fields(os.ExpandEnv(arg))...)
	}
	return extra, nil
}

// loadFileConfig reads the YAML config file. An explicit path must exist; the
// default path is optional.
func loadFileConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}
