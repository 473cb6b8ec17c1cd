package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun inserts a run record with its signal table.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a run id already
// present is left untouched, signals included.
func (s *Store) WriteRun(ctx context.Context, run Run, signals []Signal) error {
	unsettled, err := marshalUnsettled(run.Unsettled)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	status := run.Status
	if status == "" {
		status = StatusRunning
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, test, test_index, program_digest, time_unit, engine_version, ir_version,
			 status, error_kind, error_message, unsettled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			run.ID,
			run.Test,
			run.Index,
			run.ProgramDigest,
			run.TimeUnit,
			run.EngineVersion,
			run.IRVersion,
			status,
			run.ErrorKind,
			run.ErrorMessage,
			unsettled,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO signals (run_id, id, scope, name, input, driven)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare signals: %w", err)
		}
		defer stmt.Close()
		for _, sig := range signals {
			if _, err := stmt.ExecContext(ctx, run.ID, sig.ID, sig.Scope, sig.Name,
				boolToInt(sig.Input), boolToInt(sig.Driven)); err != nil {
				return fmt.Errorf("insert signal %s: %w", sig.QualifiedName(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvents appends changes and assertions to a run in one transaction.
// Duplicate (run, seq) pairs are silently ignored.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, runID string, changes []Change, assertions []Assertion) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return writeEvents(ctx, tx, runID, changes, assertions)
	})
	if err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, runID string, changes []Change, assertions []Assertion) error {
	if len(changes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO changes (run_id, seq, instant, signal, value)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare changes: %w", err)
		}
		defer stmt.Close()
		for _, c := range changes {
			if _, err := stmt.ExecContext(ctx, runID, c.Seq, int64(c.Instant), c.Signal, c.Value); err != nil {
				return fmt.Errorf("insert change %d: %w", c.Seq, err)
			}
		}
	}

	if len(assertions) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assertions
			(run_id, seq, instant, line, source, scope, expected, actual, passed, invariant)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare assertions: %w", err)
		}
		defer stmt.Close()
		for _, a := range assertions {
			if _, err := stmt.ExecContext(ctx, runID, a.Seq, int64(a.Instant), a.Line, a.Source, a.Scope,
				a.Expected, a.Actual, boolToInt(a.Passed), boolToInt(a.Invariant)); err != nil {
				return fmt.Errorf("insert assertion %d: %w", a.Seq, err)
			}
		}
	}
	return nil
}

// FinishRun writes buffered events and the final status of run
// atomically. The failure fields of run are empty for a passing run.
func (s *Store) FinishRun(
	ctx context.Context,
	run Run,
	changes []Change,
	assertions []Assertion,
) error {
	unsettled, err := marshalUnsettled(run.Unsettled)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeEvents(ctx, tx, run.ID, changes, assertions); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE runs
			SET status = ?, error_kind = ?, error_message = ?, unsettled = ?
			WHERE id = ?
		`, run.Status, run.ErrorKind, run.ErrorMessage, unsettled, run.ID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("run %s: %w", run.ID, sql.ErrNoRows)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// DeleteRun removes a run and, by cascade, its signals and events.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
