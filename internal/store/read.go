package store

import (
	"context"
	"database/sql"
	"fmt"
)

// scanner is the part of *sql.Row and *sql.Rows used by the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

const runColumns = `id, test, test_index, program_digest, time_unit, engine_version, ir_version,
	status, error_kind, error_message, unsettled`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns every run ordered by test index, then id.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY test_index ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently written run of a test.
// Returns sql.ErrNoRows if the test was never recorded.
func (s *Store) LatestRun(ctx context.Context, test string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE test = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, test)
	return scanRun(row)
}

// ReadSignals returns the signal table of a run ordered by id.
func (s *Store) ReadSignals(ctx context.Context, runID string) ([]Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, name, input, driven
		FROM signals
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals := []Signal{}
	for rows.Next() {
		var (
			sig           Signal
			input, driven int
		)
		if err := rows.Scan(&sig.ID, &sig.Scope, &sig.Name, &input, &driven); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Input = input != 0
		sig.Driven = driven != 0
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return signals, nil
}

// ReadChanges returns the changes of a run ordered by seq. A non-empty
// signal restricts the result to that qualified name.
func (s *Store) ReadChanges(ctx context.Context, runID, signal string) ([]Change, error) {
	query := `
		SELECT seq, instant, signal, value
		FROM changes
		WHERE run_id = ?`
	args := []any{runID}
	if signal != "" {
		query += ` AND signal = ?`
		args = append(args, signal)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c       Change
			instant int64
		)
		if err := rows.Scan(&c.Seq, &instant, &c.Signal, &c.Value); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Instant = uint64(instant)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

// ReadAssertions returns the assertion checks of a run ordered by seq.
func (s *Store) ReadAssertions(ctx context.Context, runID string) ([]Assertion, error) {
	return s.readAssertions(ctx, runID, false)
}

// ReadFailedAssertions returns only the failed checks of a run.
func (s *Store) ReadFailedAssertions(ctx context.Context, runID string) ([]Assertion, error) {
	return s.readAssertions(ctx, runID, true)
}

func (s *Store) readAssertions(ctx context.Context, runID string, failedOnly bool) ([]Assertion, error) {
	query := `
		SELECT seq, instant, line, source, scope, expected, actual, passed, invariant
		FROM assertions
		WHERE run_id = ?`
	if failedOnly {
		query += ` AND passed = 0`
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query assertions: %w", err)
	}
	defer rows.Close()

	out := []Assertion{}
	for rows.Next() {
		var (
			a                 Assertion
			instant           int64
			passed, invariant int
		)
		if err := rows.Scan(&a.Seq, &instant, &a.Line, &a.Source, &a.Scope,
			&a.Expected, &a.Actual, &passed, &invariant); err != nil {
			return nil, fmt.Errorf("scan assertion: %w", err)
		}
		a.Instant = uint64(instant)
		a.Passed = passed != 0
		a.Invariant = invariant != 0
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assertions: %w", err)
	}
	return out, nil
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		unsettled string
	)
	err := row.Scan(
		&run.ID,
		&run.Test,
		&run.Index,
		&run.ProgramDigest,
		&run.TimeUnit,
		&run.EngineVersion,
		&run.IRVersion,
		&run.Status,
		&run.ErrorKind,
		&run.ErrorMessage,
		&unsettled,
	)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Unsettled, err = unmarshalUnsettled(unsettled)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
