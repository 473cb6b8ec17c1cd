package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/config"
	"github.com/roach88/logicsim/internal/ir"
	"github.com/roach88/logicsim/internal/logging"
	"github.com/roach88/logicsim/internal/sim"
	"github.com/roach88/logicsim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID          string `json:"run_id"`
	Test           string `json:"test"`
	Status         string `json:"status"`
	ReplayStatus   string `json:"replay_status"`
	RecordedDigest string `json:"recorded_digest"`
	ReplayDigest   string `json:"replay_digest"`
	Deterministic  bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	Incomplete       int               `json:"incomplete"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program-dir>",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-simulate recorded runs and compare their traces.

Each finished run in the database is simulated again from the program
directory, with the run's time unit. The new trace digest must equal the
recorded one and the run must end the same way. Runs that never finished
are skipped. The program must be unchanged since recording.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, program changed, etc.)

Examples:
  logicsim replay --db ./logicsim.db ./adder
  logicsim replay --db ./logicsim.db --run 0190c7e2-... ./adder
  logicsim replay --db ./logicsim.db ./adder --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, dir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, incomplete, err := runsToReplay(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		Incomplete:       incomplete,
		AllDeterministic: true,
	}
	if len(runs) == 0 {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No finished runs found in database.")
		return nil
	}

	r := &replayer{dir: dir, base: cfg, programs: make(map[string]*ir.Program)}
	for _, run := range runs {
		formatter.VerboseLog("Replaying run %s (%s)", run.ID, run.Test)
		rr, err := r.replay(ctx, st, run)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// runsToReplay returns the finished runs to check and the number of
// unfinished ones skipped.
func runsToReplay(ctx context.Context, st *store.Store, runID string) ([]store.Run, int, error) {
	if runID != "" {
		run, err := st.ReadRun(ctx, runID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
		}
		if err != nil {
			return nil, 0, WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if run.Status == store.StatusRunning {
			return nil, 1, nil
		}
		return []store.Run{run}, 0, nil
	}

	all, err := st.ListRuns(ctx)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	var runs []store.Run
	incomplete := 0
	for _, run := range all {
		if run.Status == store.StatusRunning {
			incomplete++
			continue
		}
		runs = append(runs, run)
	}
	return runs, incomplete, nil
}

// replayer compiles the program once per time unit.
type replayer struct {
	dir      string
	base     *config.Config
	programs map[string]*ir.Program
}

func (r *replayer) program(unit string) (*ir.Program, error) {
	if p, ok := r.programs[unit]; ok {
		return p, nil
	}
	u, err := ir.ParseTimeUnit(unit)
	if err != nil {
		return nil, fmt.Errorf("recorded time unit: %w", err)
	}
	cfg := *r.base
	cfg.Simulation.TimeUnit = u.String()
	loaded, err := loadProgram(r.dir, &cfg)
	if err != nil {
		return nil, err
	}
	r.programs[unit] = loaded.Program
	return loaded.Program, nil
}

// replay re-simulates the test of one run and compares digests.
func (r *replayer) replay(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	rr := ReplayRunResult{RunID: run.ID, Test: run.Test, Status: run.Status}

	p, err := r.program(run.TimeUnit)
	if err != nil {
		return rr, err
	}
	digest, err := ir.ProgramDigest(p)
	if err != nil {
		return rr, err
	}
	if digest != run.ProgramDigest {
		return rr, fmt.Errorf("program changed since run %s was recorded", run.ID)
	}

	cfg := *r.base
	cfg.Simulation.TimeUnit = run.TimeUnit
	cfg.Simulation.FailFast = false
	cfg.Simulation.Parallelism = 1

	mem := sim.NewMemorySink()
	s, err := sim.New(p, &cfg, sim.WithTraceSink(mem), sim.WithLogger(logging.Discard()))
	if err != nil {
		return rr, err
	}
	report, _ := s.RunNamed(ctx, run.Test)
	if report == nil {
		return rr, fmt.Errorf("test %s no longer exists", run.Test)
	}
	if err := ctx.Err(); err != nil {
		return rr, err
	}

	rr.ReplayStatus = store.StatusFailed
	for _, res := range report.Results {
		if res.Index == run.Index && res.Passed() {
			rr.ReplayStatus = store.StatusPassed
		}
	}
	for _, info := range mem.Runs() {
		if info.Index != run.Index {
			continue
		}
		trace, _ := mem.Trace(info.ID)
		rr.ReplayDigest, err = trace.Digest()
		if err != nil {
			return rr, err
		}
	}

	rr.RecordedDigest, err = st.Digest(ctx, run.ID)
	if err != nil {
		return rr, err
	}
	rr.Deterministic = rr.ReplayDigest != "" &&
		rr.ReplayDigest == rr.RecordedDigest &&
		rr.ReplayStatus == run.Status
	return rr, nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer
	for _, rr := range result.Runs {
		mark := "✓"
		if !rr.Deterministic {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s %s: %s", mark, rr.RunID, rr.Test, rr.Status)
		if rr.ReplayStatus != rr.Status {
			fmt.Fprintf(w, " (replay %s)", rr.ReplayStatus)
		}
		if rr.ReplayDigest != rr.RecordedDigest {
			fmt.Fprintf(w, "\n  recorded %s\n  replayed %s", rr.RecordedDigest, rr.ReplayDigest)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	if result.Incomplete > 0 {
		fmt.Fprintf(w, "Skipped %d unfinished run(s)\n", result.Incomplete)
	}
	if result.AllDeterministic {
		fmt.Fprintf(w, "✓ %d run(s) deterministic\n", result.TotalRuns)
	} else {
		fmt.Fprintln(w, "✗ Determinism verification failed")
	}
}
