package pyshake

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/pyshake/pyshake/flags"
	"github.com/pyshake/pyshake/runner"
)

// parseConfig runs the real flag pipeline so tests exercise exactly what the
// command line produces.
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg *Config
	var cfgErr error

	app := cli.NewApp()
	app.Name = "pyshake"
	app.Writer = io.Discard
	app.Flags = flags.Flags
	app.Action = func(ctx *cli.Context) error {
		cfg, cfgErr = NewConfig(ctx, log.NewLogger(log.DiscardHandler()))
		return nil
	}
	require.NoError(t, app.Run(append([]string{"pyshake"}, args...)))
	return cfg, cfgErr
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, "suspects.txt")
	require.NoError(t, err)

	assert.Equal(t, "suspects.txt", cfg.TestsFile)
	assert.Equal(t, "python", cfg.Python)
	assert.Equal(t, 1, cfg.RequestedCycles)
	assert.Equal(t, runner.EchoNone, cfg.Echo)
	assert.False(t, cfg.FailureFocus)
	assert.False(t, cfg.ReportCycles)
	assert.Empty(t, cfg.ExtraArgs)
	assert.Empty(t, cfg.ResultsPath)
	assert.False(t, cfg.KeepResults)
}

func TestNewConfig_MissingTestsFileArgument(t *testing.T) {
	_, err := parseConfig(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TESTS_FILE")
}

func TestNewConfig_EchoModes(t *testing.T) {
	cfg, err := parseConfig(t, "--echo", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, runner.EchoAll, cfg.Echo)

	cfg, err = parseConfig(t, "--echo-final", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, runner.EchoFinal, cfg.Echo)

	_, err = parseConfig(t, "--echo", "--echo-final", "suspects.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestNewConfig_Cycles(t *testing.T) {
	cfg, err := parseConfig(t, "--cycles", "5", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.RequestedCycles)

	_, err = parseConfig(t, "--cycles", "0", "suspects.txt")
	require.Error(t, err)

	_, err = parseConfig(t, "--cycles", "-3", "suspects.txt")
	require.Error(t, err)
}

func TestNewConfig_JSONPathIsKept(t *testing.T) {
	cfg, err := parseConfig(t, "--json-path", "/tmp/report.json", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/report.json", cfg.ResultsPath)
	assert.True(t, cfg.KeepResults)
}

func TestNewConfig_PytestArgsQuoting(t *testing.T) {
	cfg, err := parseConfig(t, "--pytest-args", `-k "not slow" -x`, "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"-k", "not slow", "-x"}, cfg.ExtraArgs)

	_, err = parseConfig(t, "--pytest-args", `-k "unterminated`, "suspects.txt")
	require.Error(t, err)
}

func TestNewConfig_PytestArgsEnvExpansion(t *testing.T) {
	t.Setenv("PYSHAKE_TEST_MARKER", "smoke")
	cfg, err := parseConfig(t, "--pytest-args", "-m $PYSHAKE_TEST_MARKER", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"-m", "smoke"}, cfg.ExtraArgs)
}

func TestNewConfig_PassthroughArgs(t *testing.T) {
	cfg, err := parseConfig(t, "suspects.txt", "--", "-x", "--tb=short")
	require.NoError(t, err)
	assert.Equal(t, []string{"-x", "--tb=short"}, cfg.ExtraArgs,
		"the -- separator itself never reaches pytest")
}

func TestNewConfig_PassthroughExpandsAndSplits(t *testing.T) {
	t.Setenv("PYSHAKE_TEST_EXTRA", "-x -q")
	cfg, err := parseConfig(t, "suspects.txt", "--", "$PYSHAKE_TEST_EXTRA")
	require.NoError(t, err)
	assert.Equal(t, []string{"-x", "-q"}, cfg.ExtraArgs,
		"a variable may hold several flags")
}

func TestNewConfig_PytestArgsAndPassthroughCombine(t *testing.T) {
	cfg, err := parseConfig(t, "--pytest-args", "--tb=short", "suspects.txt", "--", "-x")
	require.NoError(t, err)
	assert.Equal(t, []string{"--tb=short", "-x"}, cfg.ExtraArgs)
}

func TestNewConfig_FileConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyshake.yaml")
	content := `
python: /opt/py/bin/python
cycles: 7
pytest_args: "-m smoke"
log_dir: /var/log/pyshake
monitor_addr: 127.0.0.1:7300
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := parseConfig(t, "--config", path, "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, "/opt/py/bin/python", cfg.Python)
	assert.Equal(t, 7, cfg.RequestedCycles)
	assert.Equal(t, []string{"-m", "smoke"}, cfg.ExtraArgs)
	assert.Equal(t, "/var/log/pyshake", cfg.LogDir)
	assert.Equal(t, "127.0.0.1:7300", cfg.MonitorAddr)
}

func TestNewConfig_FlagsOverrideFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyshake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cycles: 7\npython: /opt/py/bin/python\n"), 0644))

	cfg, err := parseConfig(t, "--config", path, "--cycles", "3", "suspects.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RequestedCycles, "an explicit flag beats the file value")
	assert.Equal(t, "/opt/py/bin/python", cfg.Python, "unset flags still take file values")
}

func TestNewConfig_ExplicitConfigMustExist(t *testing.T) {
	_, err := parseConfig(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "suspects.txt")
	require.Error(t, err)
}

func TestNewConfig_MalformedConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyshake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cycles: [not an int\n"), 0644))

	_, err := parseConfig(t, "--config", path, "suspects.txt")
	require.Error(t, err)
}

func TestRuntimeError(t *testing.T) {
	inner := errors.New("boom")
	err := NewRuntimeError(inner)

	assert.True(t, IsRuntimeError(err))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "runtime error")

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsRuntimeError(inner))
}
