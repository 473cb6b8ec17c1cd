package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/compiler"
	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/elaborate"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/link"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program-dir>",
		Short: "Validate a program without simulating it",
		Long: `Validate a CUE program without running any test.

Performs schema and static checks, then elaborates and links every test
so hierarchy errors (unknown units, arity, recursion) and netlist errors
(multiple drivers, undriven reads) are reported together. Faster than run
for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	loaded, err := loadProgram(dir, cfg)
	if err != nil {
		var le *compiler.LoadError
		if !errors.As(err, &le) || loaded == nil {
			return outputLoadError(formatter, err)
		}
		switch {
		case le.Code == ErrCodeInvalid && loaded.Program != nil:
			return outputValidationErrors(formatter, compiler.Validate(loaded.Program))
		case le.Code == ErrCodeCompile:
			return outputValidationErrors(formatter, []compiler.ValidationError{{
				Field:   "program",
				Message: le.Message,
				Code:    le.Code,
				Line:    getLineFromPos(le.Pos),
			}})
		default:
			return outputLoadError(formatter, err)
		}
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loaded.Files), dir)

	issues := validateTests(loaded.Program, cfg, formatter)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}
	return outputValidateSuccess(formatter, loaded.Warnings)
}

// validateTests elaborates and links every test, collecting all failures.
func validateTests(p *ir.Program, cfg *config.Config, formatter *OutputFormatter) []compiler.ValidationError {
	var issues []compiler.ValidationError
	for _, t := range p.Tests {
		formatter.VerboseLog("Validating test: %s", t.Name.Text)

		d, err := elaborate.ElaborateTest(p, t, elaborate.WithMaxDepth(cfg.Simulation.MaxDepth))
		if err != nil {
			issues = append(issues, testIssue(t.Name.Text, err))
			continue
		}
		if _, err := link.Link(d); err != nil {
			issues = append(issues, testIssue(t.Name.Text, err))
		}
	}
	return issues
}

// testIssue converts an elaboration or link error to a validation error.
func testIssue(test string, err error) compiler.ValidationError {
	issue := compiler.ValidationError{
		Field:   "test." + test,
		Message: err.Error(),
		Code:    ErrCodeGeneric,
	}
	var ee *elaborate.Error
	var le *link.Error
	switch {
	case errors.As(err, &ee):
		issue.Code = string(ee.Code)
		issue.Message = ee.Message
		issue.Line = ee.Span.Line
	case errors.As(err, &le):
		issue.Code = string(le.Code)
		issue.Message = le.Message
		issue.Line = le.Span.Line
	}
	return issue
}

// getLineFromPos extracts the line number from a CUE position.
func getLineFromPos(pos interface {
	IsValid() bool
	Line() int
}) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, warnings []compiler.CycleWarning) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Warnings: warnings})
	}

	fmt.Fprintln(formatter.Writer, "✓ Program valid")
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
