package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/logicsim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Signal   string // optional - filter to one qualified signal
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Type     string `json:"type"` // "change" or "assert"
	Instant  uint64 `json:"instant"`
	Signal   string `json:"signal,omitempty"`
	Value    string `json:"value,omitempty"`
	Line     int    `json:"line,omitempty"`
	Source   string `json:"source,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Passed   bool   `json:"passed,omitempty"`
}

// RunSummary describes a recorded run.
type RunSummary struct {
	ID            string   `json:"id"`
	Test          string   `json:"test"`
	Index         int      `json:"index"`
	Status        string   `json:"status"`
	ProgramDigest string   `json:"program_digest"`
	TimeUnit      string   `json:"time_unit"`
	ErrorKind     string   `json:"error_kind,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	Unsettled     []string `json:"unsettled,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunSummary   `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents      int    `json:"total_events"`
	Changes          int    `json:"changes"`
	Assertions       int    `json:"assertions"`
	FailedAssertions int    `json:"failed_assertions"`
	LastInstant      uint64 `json:"last_instant"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded trace",
		Long: `Show runs recorded by "run --db".

Without --run, lists every recorded run. With --run, prints the run's
timeline: value changes and assertion checks in the order the engine
emitted them. --signal keeps only the changes of one qualified signal.

Examples:
  logicsim trace --db ./logicsim.db
  logicsim trace --db ./logicsim.db --run 0190c7e2-...
  logicsim trace --db ./logicsim.db --run 0190c7e2-... --signal main.o
  logicsim trace --db ./logicsim.db --run 0190c7e2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "filter to one qualified signal, e.g. main.o")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRunList(formatter, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		Run:      summarizeRun(run),
		Timeline: buildTimeline(events, opts.Signal),
	}
	result.Stats = computeTraceStats(result.Timeline)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result, opts.Signal)
}

// openExistingStore opens a trace database that must already exist.
// store.Open would silently create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func summarizeRun(r store.Run) RunSummary {
	return RunSummary{
		ID:            r.ID,
		Test:          r.Test,
		Index:         r.Index,
		Status:        r.Status,
		ProgramDigest: r.ProgramDigest,
		TimeUnit:      r.TimeUnit,
		ErrorKind:     r.ErrorKind,
		ErrorMessage:  r.ErrorMessage,
		Unsettled:     r.Unsettled,
	}
}

// buildTimeline converts stored events. A non-empty signal keeps only
// that signal's changes.
func buildTimeline(events []store.Event, signal string) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		switch ev.Type {
		case store.EventChange:
			c := ev.Change
			if signal != "" && c.Signal != signal {
				continue
			}
			timeline = append(timeline, TraceEvent{
				Seq:     c.Seq,
				Type:    ev.Type.String(),
				Instant: c.Instant,
				Signal:  c.Signal,
				Value:   c.Value,
			})
		case store.EventAssertion:
			if signal != "" {
				continue
			}
			a := ev.Assertion
			timeline = append(timeline, TraceEvent{
				Seq:      a.Seq,
				Type:     ev.Type.String(),
				Instant:  a.Instant,
				Line:     a.Line,
				Source:   a.Source,
				Expected: a.Expected,
				Actual:   a.Actual,
				Passed:   a.Passed,
			})
		}
	}
	return timeline
}

func computeTraceStats(timeline []TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(timeline)}
	for _, ev := range timeline {
		switch ev.Type {
		case "change":
			stats.Changes++
		case "assert":
			stats.Assertions++
			if !ev.Passed {
				stats.FailedAssertions++
			}
		}
		if ev.Instant > stats.LastInstant {
			stats.LastInstant = ev.Instant
		}
	}
	return stats
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarizeRun(r)
	}
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range summaries {
		fmt.Fprintf(formatter.Writer, "%s  %-8s %s", r.ID, r.Status, r.Test)
		if r.ErrorKind != "" {
			fmt.Fprintf(formatter.Writer, " (%s)", r.ErrorKind)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func outputTraceText(formatter *OutputFormatter, result TraceResult, signal string) error {
	w := formatter.Writer
	r := result.Run

	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Test: %s (#%d)\n", r.Test, r.Index)
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	if r.ErrorKind != "" {
		fmt.Fprintf(w, "Error: %s: %s\n", r.ErrorKind, r.ErrorMessage)
	}
	if len(r.Unsettled) > 0 {
		fmt.Fprintf(w, "Unsettled: %v\n", r.Unsettled)
	}
	if signal != "" {
		fmt.Fprintf(w, "Signal: %s\n", signal)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		switch ev.Type {
		case "change":
			fmt.Fprintf(w, "  [%d] t=%d %s = %s\n", ev.Seq, ev.Instant, ev.Signal, ev.Value)
		case "assert":
			mark := "✓"
			if !ev.Passed {
				mark = "✗"
			}
			fmt.Fprintf(w, "  [%d] t=%d %s line %d: %s expected %s, got %s\n",
				ev.Seq, ev.Instant, mark, ev.Line, ev.Source, ev.Expected, ev.Actual)
		}
	}
	fmt.Fprintln(w)

	s := result.Stats
	fmt.Fprintf(w, "Stats: %d event(s), %d change(s), %d assertion(s), %d failed, last instant %d\n",
		s.TotalEvents, s.Changes, s.Assertions, s.FailedAssertions, s.LastInstant)
	return nil
}
