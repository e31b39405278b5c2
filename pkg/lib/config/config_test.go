package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "PathOfExile", cfg.ProcessName)
	assert.Equal(t, "Path of Exile 2", cfg.CmdlineMatch)
	assert.Equal(t, `C:\Program Files (x86)\Grinding Gear Games\Path of Exile 2`, cfg.FallbackGameDir)
	assert.Equal(t, 2, cfg.ReservedCores)
	assert.Equal(t, time.Second, cfg.ProcessPollInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.TailPollInterval)
	assert.Equal(t, 256, cfg.MaxLineLength)
	assert.False(t, cfg.RestoreOnExit)
	assert.Equal(t, "/proc", cfg.ProcfsPath)
}

func TestLoadConfig_MissingFileIsFine(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), nil)
	require.NoError(t, err)
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coremgr.yaml"), []byte(
		"reservedCores: 4\ntailPollInterval: 50ms\nlogFile: /from/file\n"), 0o644))
	t.Setenv("COREMGR_LOG_FILE", "/from/env")
	t.Setenv("COREMGR_PROCESS_POLL_INTERVAL", "250ms")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("reserved-cores", 2, "")
	flags.String("log-file", "", "")
	require.NoError(t, flags.Parse([]string{"--reserved-cores=3"}))

	cfg, err := LoadConfig(dir, flags)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ReservedCores, "flag beats file")
	assert.Equal(t, "/from/env", cfg.LogFile, "env beats file")
	assert.Equal(t, 50*time.Millisecond, cfg.TailPollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.ProcessPollInterval)
}

func TestLoadConfig_SquashedEnvNamesIgnored(t *testing.T) {
	t.Setenv("COREMGR_LOGFILE", "/squashed")
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.LogFile)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "COREMGR_LOG_FILE", EnvKey("logFile"))
	assert.Equal(t, "COREMGR_PROCESS_POLL_INTERVAL", EnvKey("processPollInterval"))
	assert.Equal(t, "COREMGR_PROCFS_PATH", EnvKey("procfsPath"))
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coremgr.yaml"), []byte(
		"reservedCores: -1\nmaxLineLength: 0\n"), 0o644))
	_, err := LoadConfig(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservedCores")
	assert.Contains(t, err.Error(), "maxLineLength")
}

func TestConfig_Builders(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "PathOfExile", cfg.Matcher().Name)
	s := cfg.Session()
	assert.Equal(t, cfg.TailPollInterval, s.TailPollInterval)
	assert.Equal(t, cfg.MaxLineLength, s.MaxLineLength)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "reservedCores", FlagKey("reserved-cores"))
	assert.Equal(t, "processPollInterval", FlagKey("process-poll-interval"))
	assert.Equal(t, "logLevel", FlagKey("logLevel"))
}
