package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/compiler"
	"github.com/roach88/logicsim/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// UnitSummary describes one compiled unit.
type UnitSummary struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Inputs     []string `json:"inputs"`
	Outputs    []string `json:"outputs"`
	Statements []string `json:"statements"`
}

// CompilationResult holds the compiled program in summary form.
type CompilationResult struct {
	Digest    string                  `json:"digest"`
	TimeUnit  string                  `json:"time_unit"`
	Circuits  []UnitSummary           `json:"circuits"`
	Processes []UnitSummary           `json:"processes"`
	Tests     []UnitSummary           `json:"tests"`
	Warnings  []compiler.CycleWarning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program-dir>",
		Short: "Compile a CUE program",
		Long: `Compile the CUE program in a directory.

The compiler checks the documents against the program schema, builds the
units and runs static validation. The summary lists every circuit, process
and test with its ports and statements, plus the program digest recorded
with each simulation run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	loaded, err := loadProgram(dir, cfg)
	if err != nil {
		var le *compiler.LoadError
		if errors.As(err, &le) && le.Code == ErrCodeInvalid && loaded != nil && loaded.Program != nil {
			return outputValidationErrors(formatter, compiler.Validate(loaded.Program))
		}
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loaded.Files), dir)
	for _, u := range loaded.Program.Units() {
		formatter.VerboseLog("Compiled %s: %s", u.Kind, u.Name.Text)
	}

	result, err := summarize(loaded, cfg.Simulation.TimeUnit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest program", err)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarize renders the loaded program.
func summarize(loaded *compiler.Loaded, timeUnit string) (*CompilationResult, error) {
	digest, err := ir.ProgramDigest(loaded.Program)
	if err != nil {
		return nil, err
	}
	return &CompilationResult{
		Digest:    digest,
		TimeUnit:  timeUnit,
		Circuits:  unitSummaries(loaded.Program.Circuits),
		Processes: unitSummaries(loaded.Program.Processes),
		Tests:     unitSummaries(loaded.Program.Tests),
		Warnings:  loaded.Warnings,
	}, nil
}

func unitSummaries(units []*ir.Unit) []UnitSummary {
	out := make([]UnitSummary, len(units))
	for i, u := range units {
		s := UnitSummary{
			Kind:       u.Kind.String(),
			Name:       u.Name.Text,
			Inputs:     nameTexts(u.Inputs),
			Outputs:    nameTexts(u.Outputs),
			Statements: make([]string, len(u.Body)),
		}
		for j, st := range u.Body {
			s.Statements[j] = ir.StatementString(st)
		}
		out[i] = s
	}
	return out
}

func nameTexts(ns []ir.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Text
	}
	return out
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d circuit(s), %d process(es), %d test(s)\n\n",
		len(result.Circuits), len(result.Processes), len(result.Tests))

	for _, group := range []struct {
		title string
		units []UnitSummary
	}{
		{"Circuits", result.Circuits},
		{"Processes", result.Processes},
		{"Tests", result.Tests},
	} {
		if len(group.units) == 0 {
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s:\n", group.title)
		for _, u := range group.units {
			fmt.Fprintf(formatter.Writer, "  %s: %d input(s), %d output(s), %d statement(s)\n",
				u.Name, len(u.Inputs), len(u.Outputs), len(u.Statements))
		}
		fmt.Fprintln(formatter.Writer)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
	}

	fmt.Fprintf(formatter.Writer, "Digest: %s\n", result.Digest)
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote program summary to %s\n", outputFile)
	}

	return nil
}

// writeResultToFile writes the compilation result as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	// Indented for readability; canonical JSON is used only for hashing
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
