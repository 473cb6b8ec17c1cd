package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // suite filter (glob pattern)
}

// SuiteResult holds the result of a single suite execution.
type SuiteResult struct {
	Name   string                `json:"name"`
	File   string                `json:"file"`
	Pass   bool                  `json:"pass"`
	Tests  []harness.TestOutcome `json:"tests,omitempty"`
	Errors []string              `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Suites []SuiteResult `json:"suites"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Total  int           `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <suites-dir>",
		Short: "Run testbench suites",
		Long: `Run YAML testbench suites.

Each suite names a program directory, the expected outcome of its tests and
assertions on the recorded trace. Suites with golden: true also compare the
canonical trace with golden/<name>.golden next to the suite file.

Exit codes:
  0 - All suites passed
  1 - One or more suites failed
  2 - Command error (invalid paths, etc.)

Examples:
  logicsim test ./suites
  logicsim test ./suites --filter "adder*"
  logicsim test ./suites --update
  logicsim test ./suites --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter suites by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, suitesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(suitesDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("suites directory not found: %s", suitesDir))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	files, err := harness.Discover(suitesDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find suites", err)
	}

	result := TestResult{
		Suites: make([]SuiteResult, 0, len(files)),
		Total:  len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No suites found.")
		return nil
	}

	h := harness.New(
		harness.WithLogger(newLogger(opts.RootOptions, cfg, formatter)),
		harness.WithConfig(cfg),
	)
	for _, file := range files {
		sr := runSuite(cmd.Context(), h, file, opts)
		if opts.Format != "json" {
			printSuiteResult(cmd.OutOrStdout(), sr, opts.Update)
		}
		result.Suites = append(result.Suites, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd.OutOrStdout(), result)
	}
	return outputTestText(cmd.OutOrStdout(), result)
}

// runSuite loads, runs and golden-checks one suite file.
func runSuite(ctx context.Context, h *harness.Harness, file string, opts *TestOptions) SuiteResult {
	if ctx == nil {
		ctx = context.Background()
	}
	sr := SuiteResult{Name: filepath.Base(file), File: file}

	suite, err := harness.LoadSuite(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load suite: %v", err)}
		return sr
	}
	sr.Name = suite.Name

	result, err := h.Run(ctx, suite)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Tests = result.Tests
	sr.Errors = result.Errors

	if suite.Golden {
		if err := checkGolden(file, suite, result, opts.Update); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
			sr.Pass = false
			return sr
		}
	}
	sr.Pass = result.Pass
	return sr
}

// checkGolden compares (or with update, rewrites) golden/<name>.golden
// next to the suite file.
func checkGolden(file string, suite *harness.Suite, result *harness.Result, update bool) error {
	data, err := harness.Snapshot(suite.Name, result)
	if err != nil {
		return fmt.Errorf("failed to snapshot trace: %w", err)
	}
	path := goldenFilePath(file, suite.Name)
	err = harness.CheckGolden(path, data, update)
	if errors.Is(err, harness.ErrGoldenMissing) {
		return fmt.Errorf("golden file missing: %s (run with --update to create)", path)
	}
	return err
}

// goldenFilePath returns the path to the golden file for a suite.
func goldenFilePath(suiteFile, name string) string {
	return harness.GoldenPath(filepath.Join(filepath.Dir(suiteFile), "golden"), name)
}

func printSuiteResult(w io.Writer, sr SuiteResult, update bool) {
	if !sr.Pass {
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if update {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s (%d test(s))\n", sr.Name, len(sr.Tests))
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d suite(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d suite(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d suite(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All suites passed")
	return nil
}
