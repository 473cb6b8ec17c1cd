package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/sim"
)

// Suite defines a testbench suite.
type Suite struct {
	// Name uniquely identifies this suite and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this suite checks.
	Description string `yaml:"description"`

	// Program is the CUE program directory.
	// Relative paths are resolved against the suite file's directory.
	Program string `yaml:"program"`

	// Config overrides simulation settings for this suite.
	Config SuiteConfig `yaml:"config,omitempty"`

	// Expect lists the expected outcome per test.
	Expect []Expectation `yaml:"expect"`

	// Assertions are checked against the recorded trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden compares the canonical trace with a golden file.
	Golden bool `yaml:"golden,omitempty"`
}

// SuiteConfig holds per-suite overrides of config.Config. Unset fields
// keep the defaults.
type SuiteConfig struct {
	TimeUnit  string `yaml:"time_unit,omitempty"`
	MaxPasses int    `yaml:"max_passes,omitempty"`
	MaxDepth  int    `yaml:"max_depth,omitempty"`
}

// Apply writes the overrides into cfg.
func (c SuiteConfig) Apply(cfg *config.Config) {
	if c.TimeUnit != "" {
		cfg.Simulation.TimeUnit = c.TimeUnit
	}
	if c.MaxPasses > 0 {
		cfg.Simulation.MaxPasses = c.MaxPasses
	}
	if c.MaxDepth > 0 {
		cfg.Simulation.MaxDepth = c.MaxDepth
	}
}

// Outcomes for Expectation.Outcome.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)

// Expectation is the expected result of one test.
type Expectation struct {
	// Test names the test.
	Test string `yaml:"test"`

	// Outcome is "pass" or "fail".
	Outcome string `yaml:"outcome"`

	// Error is the expected failure kind (see sim.ErrorKind), e.g.
	// "assertion" or "runtime". Empty matches any kind.
	Error string `yaml:"error,omitempty"`

	// Expected and Actual are matched against a failed assertion.
	Expected string `yaml:"expected,omitempty"`
	Actual   string `yaml:"actual,omitempty"`

	// Line is the expected source line of the failure.
	Line int `yaml:"line,omitempty"`
}

// Assertion validates the recorded trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": the signal takes Value, at Instant if set
	// - "trace_order": the signal takes Values in order
	// - "trace_count": the signal changes exactly Count times
	// - "final_value": the signal's last value is Value
	Type string `yaml:"type"`

	// Test names the test whose trace is checked.
	Test string `yaml:"test"`

	// Signal is a qualified signal name such as main.o.
	Signal string `yaml:"signal"`

	// Value is the expected value (trace_contains, final_value).
	Value string `yaml:"value,omitempty"`

	// Instant restricts trace_contains to one instant.
	Instant *uint64 `yaml:"instant,omitempty"`

	// Values is the expected value sequence (trace_order).
	// Intervening values are allowed.
	Values []string `yaml:"values,omitempty"`

	// Count is the expected number of changes (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalValue    = "final_value"
)

// LoadSuite reads and parses a suite YAML file. The program path is
// resolved relative to the suite file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return ParseSuite(data, filepath.Dir(path))
}

// ParseSuite parses suite YAML, resolving the program path against
// baseDir.
func ParseSuite(data []byte, baseDir string) (*Suite, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if suite.Program != "" && !filepath.IsAbs(suite.Program) && baseDir != "" {
		suite.Program = filepath.Join(baseDir, suite.Program)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &suite, nil
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if info, err := os.Stat(s.Program); err != nil || !info.IsDir() {
		return fmt.Errorf("program directory not found: %s", s.Program)
	}
	if s.Config.MaxPasses < 0 {
		return fmt.Errorf("config.max_passes must be non-negative")
	}
	if s.Config.MaxDepth < 0 {
		return fmt.Errorf("config.max_depth must be non-negative")
	}

	seen := make(map[string]bool)
	for i, e := range s.Expect {
		if e.Test == "" {
			return fmt.Errorf("expect[%d]: test is required", i)
		}
		if seen[e.Test] {
			return fmt.Errorf("expect[%d]: duplicate expectation for test %q", i, e.Test)
		}
		seen[e.Test] = true

		switch e.Outcome {
		case OutcomePass:
			if e.Error != "" || e.Expected != "" || e.Actual != "" || e.Line != 0 {
				return fmt.Errorf("expect[%d]: failure details given for outcome pass", i)
			}
		case OutcomeFail:
			if e.Error != "" {
				if _, ok := sim.ParseErrorKind(e.Error); !ok {
					return fmt.Errorf("expect[%d]: unknown error kind %q", i, e.Error)
				}
			}
		case "":
			return fmt.Errorf("expect[%d]: outcome is required", i)
		default:
			return fmt.Errorf("expect[%d]: outcome must be pass or fail, got %q", i, e.Outcome)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Test == "" {
		return fmt.Errorf("assertions[%d]: test is required", index)
	}
	if a.Signal == "" {
		return fmt.Errorf("assertions[%d]: signal is required", index)
	}

	switch a.Type {
	case AssertTraceContains, AssertFinalValue:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertTraceOrder:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
