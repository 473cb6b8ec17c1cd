package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicsim/internal/ir"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logicsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ns", cfg.Simulation.TimeUnit)
	assert.Equal(t, 1000, cfg.Simulation.MaxPasses)
	assert.Equal(t, 64, cfg.Simulation.MaxDepth)
	assert.Equal(t, 1, cfg.Simulation.Parallelism)
	assert.False(t, cfg.Simulation.FailFast)
	assert.False(t, cfg.Trace.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	unit, err := cfg.Unit()
	require.NoError(t, err)
	assert.Equal(t, ir.Nanosecond, unit)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvTraceDB, "")
	t.Setenv(EnvFailFast, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[simulation]
time_unit = "ps"
max_passes = 50
fail_fast = true
parallelism = 4

[trace]
enabled = true
database = "runs.db"

[logging]
level = "debug"
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ps", cfg.Simulation.TimeUnit)
	assert.Equal(t, 50, cfg.Simulation.MaxPasses)
	assert.Equal(t, 64, cfg.Simulation.MaxDepth, "unset keys keep defaults")
	assert.True(t, cfg.Simulation.FailFast)
	assert.Equal(t, 4, cfg.Simulation.Parallelism)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "runs.db", cfg.Trace.Database)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
[simulation]
max_pases = 50
`)
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_pases")
}

func TestLoadFromFile_Syntax(t *testing.T) {
	path := writeConfig(t, "[simulation\nmax_passes = 1\n")
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "TRACE")
	t.Setenv(EnvTraceDB, "/tmp/trace.db")
	t.Setenv(EnvFailFast, "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "/tmp/trace.db", cfg.Trace.Database)
	assert.True(t, cfg.Simulation.FailFast)
}

func TestEnvOverrides_BadBool(t *testing.T) {
	t.Setenv(EnvFailFast, "sometimes")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvFailFast)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad unit", func(c *Config) { c.Simulation.TimeUnit = "fortnight" }, "time_unit"},
		{"zero passes", func(c *Config) { c.Simulation.MaxPasses = 0 }, "max_passes"},
		{"zero depth", func(c *Config) { c.Simulation.MaxDepth = 0 }, "max_depth"},
		{"zero parallelism", func(c *Config) { c.Simulation.Parallelism = 0 }, "parallelism"},
		{"trace without db", func(c *Config) { c.Trace.Enabled = true; c.Trace.Database = "" }, "database"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Simulation.MaxPasses = 12

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_passes = 12")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
