// Package config loads simulator settings from a TOML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/engine"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/logging"
)

// Environment variables that override file settings.
const (
	EnvLogLevel = "LOGICSIM_LOG_LEVEL"
	EnvTraceDB  = "LOGICSIM_TRACE_DB"
	EnvFailFast = "LOGICSIM_FAIL_FAST"
)

// Config contains all simulator settings.
type Config struct {
	// Simulation bounds elaboration and settling and picks the run policy.
	Simulation SimulationConfig `toml:"simulation"`

	// Trace configures recording of value changes.
	Trace TraceConfig `toml:"trace"`

	// Logging configures operational logging.
	Logging LoggingConfig `toml:"logging"`
}

// SimulationConfig configures how tests run.
type SimulationConfig struct {
	// TimeUnit is the unit of bare integer times: ps, ns, us, ms or s.
	TimeUnit string `toml:"time_unit"`

	// MaxPasses bounds settle passes per instant.
	MaxPasses int `toml:"max_passes"`

	// MaxDepth bounds unit invocation nesting.
	MaxDepth int `toml:"max_depth"`

	// FailFast stops RunAllTests at the first failing test.
	FailFast bool `toml:"fail_fast"`

	// Parallelism is the number of tests simulated at once (1 = sequential).
	Parallelism int `toml:"parallelism"`
}

// TraceConfig configures the trace store.
type TraceConfig struct {
	// Enabled turns recording on.
	Enabled bool `toml:"enabled"`

	// Database is the SQLite file runs are recorded to.
	Database string `toml:"database"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of error, warn, info, debug, trace.
	Level string `toml:"level"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TimeUnit:    ir.Nanosecond.String(),
			MaxPasses:   engine.DefaultMaxPasses,
			MaxDepth:    elaborate.DefaultMaxDepth,
			FailFast:    false,
			Parallelism: 1,
		},
		Trace: TraceConfig{
			Enabled:  false,
			Database: "logicsim.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the configuration for path. An empty path means defaults
// only. Order: defaults -> file -> environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a TOML file over the defaults. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, len(strict.Errors))
			for i, e := range strict.Errors {
				keys[i] = strings.Join(e.Key(), ".")
			}
			return nil, fmt.Errorf("parsing config file: unknown keys: %s", strings.Join(keys, ", "))
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing config file: line %d, column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.Unit(); err != nil {
		return err
	}
	if c.Simulation.MaxPasses < 1 {
		return fmt.Errorf("max_passes must be at least 1, got %d", c.Simulation.MaxPasses)
	}
	if c.Simulation.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.Simulation.MaxDepth)
	}
	if c.Simulation.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Simulation.Parallelism)
	}
	if c.Trace.Enabled && c.Trace.Database == "" {
		return errors.New("trace is enabled but no database is set")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level)
	}
	return nil
}

// Unit returns the parsed time unit.
func (c *Config) Unit() (ir.TimeUnit, error) {
	u, err := ir.ParseTimeUnit(c.Simulation.TimeUnit)
	if err != nil {
		return 0, fmt.Errorf("time_unit: %w", err)
	}
	return u, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Setting LOGICSIM_TRACE_DB also enables tracing.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvTraceDB); v != "" {
		c.Trace.Database = v
		c.Trace.Enabled = true
	}
	if v := os.Getenv(EnvFailFast); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFailFast, err)
		}
		c.Simulation.FailFast = b
	}
	return nil
}
