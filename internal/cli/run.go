package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/sim"
	"github.com/roach88/logicsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Test     string
	FailFast bool
	Database string
	Parallel int
}

// TestRunResult is the outcome of one test in run output.
type TestRunResult struct {
	Test     string `json:"test"`
	RunID    string `json:"run_id,omitempty"`
	Passed   bool   `json:"passed"`
	Instants int    `json:"instants"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// RunResult holds the run command output.
type RunResult struct {
	ProgramDigest string          `json:"program_digest"`
	Tests         []TestRunResult `json:"tests"`
	Passed        int             `json:"passed"`
	Failed        int             `json:"failed"`
	Skipped       int             `json:"skipped"`
	Database      string          `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program-dir>",
		Short: "Simulate the tests of a program",
		Long: `Compile a CUE program and simulate its tests.

Every test runs by default and all failures are reported. With --test only
tests of that name run; --fail-fast stops at the first failing test. With
--db every run is recorded to a SQLite trace database (created if it does
not exist) for the trace and replay commands.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed
  2 - Command error (program does not compile, database error, etc.)

Examples:
  logicsim run ./adder
  logicsim run ./adder --test main --db ./logicsim.db
  logicsim run ./adder --parallel 4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Test, "test", "", "run only tests with this name")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first failing test")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs to this SQLite database")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "number of tests simulated at once (default from config)")

	return cmd
}

func runSimulation(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.Simulation.FailFast = opts.FailFast
	}
	if opts.Parallel > 0 {
		cfg.Simulation.Parallelism = opts.Parallel
	}
	if opts.Database != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Database = opts.Database
	}
	logger := newLogger(opts.RootOptions, cfg, formatter)

	logger.Debug("compiling program", "dir", dir)
	loaded, err := loadProgram(dir, cfg)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	simOpts := []sim.Option{sim.WithLogger(logger)}

	if cfg.Trace.Enabled {
		logger.Debug("opening trace database", "path", cfg.Trace.Database)
		st, err := store.Open(cfg.Trace.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, fmt.Sprintf("opening database: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, sim.WithTraceSink(store.NewRecorder(st)))
	}

	s, err := sim.New(loaded.Program, cfg, simOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create simulator", err)
	}

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	var report *sim.Report
	if opts.Test != "" {
		report, err = s.RunNamed(ctx, opts.Test)
	} else {
		report, err = s.RunAllTests(ctx)
	}
	if err != nil && ctx.Err() != nil {
		return WrapExitError(ExitFailure, "simulation interrupted", err)
	}
	if report == nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no test to run", err)
	}

	result := buildRunResult(report)
	if cfg.Trace.Enabled {
		result.Database = cfg.Trace.Database
	}
	if err := outputRunResult(formatter, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d test(s) failed", result.Failed))
	}
	return nil
}

// signalContext cancels on SIGINT/SIGTERM. The test in flight stops before
// its next instant and is reported as a runtime failure; tests not yet
// started are skipped.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, func()) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

func buildRunResult(report *sim.Report) RunResult {
	result := RunResult{
		ProgramDigest: report.ProgramDigest,
		Tests:         make([]TestRunResult, 0, len(report.Results)),
		Passed:        report.Passed(),
		Failed:        report.Failed(),
		Skipped:       report.Skipped,
	}
	for _, r := range report.Results {
		tr := TestRunResult{
			Test:     r.Test,
			RunID:    r.RunID,
			Passed:   r.Passed(),
			Instants: r.Instants,
		}
		if r.Err != nil {
			tr.Kind = r.Err.Kind.String()
			tr.Message = r.Err.Err.Error()
			tr.Line = r.Err.Span().Line
		}
		result.Tests = append(result.Tests, tr)
	}
	return result
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, t := range result.Tests {
		if t.Passed {
			fmt.Fprintf(w, "✓ %s (%d instant(s))\n", t.Test, t.Instants)
			continue
		}
		fmt.Fprintf(w, "✗ %s: %s error", t.Test, t.Kind)
		if t.Line > 0 {
			fmt.Fprintf(w, " at line %d", t.Line)
		}
		fmt.Fprintf(w, "\n  %s\n", t.Message)
	}
	fmt.Fprintf(w, "\n%d passed, %d failed", result.Passed, result.Failed)
	if result.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", result.Skipped)
	}
	fmt.Fprintln(w)
	if result.Database != "" {
		fmt.Fprintf(w, "Recorded to %s\n", result.Database)
	}
	return nil
}
