package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/verdict"
)

// Run is a persisted verification run.
type Run struct {
	ID         string
	Seq        int64 // assigned by the store
	Scenario   string
	Report     verdict.Report
	TestsTotal int
}

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING for
// idempotency: run IDs are content-addressed, so a duplicate ID is the
// same run written again. Reports whether a new row was inserted.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: empty id")
	}
	reportJSON, err := marshalRecord(run.Report)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}

	v := run.Report.Verdict
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, verdict, reason, manual_review, trust, confidence, recommendation, tests_total, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		string(v.Kind),
		v.Reason,
		v.ManualReview,
		int(run.Report.Trust.Overall),
		int(run.Report.Trust.Confidence),
		string(run.Report.Trust.Recommendation),
		run.TestsTotal,
		reportJSON,
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	return n > 0, nil
}

// WriteEvidence inserts the evidence of a run in one transaction. The
// position of each record in evs becomes its seq. Records whose ID already
// exists are skipped. The run must exist (foreign key constraint).
func (s *Store) WriteEvidence(ctx context.Context, runID string, evs []evidence.ClauseEvidence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write evidence: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clause_evidence
		(id, run_id, seq, execution_id, behavior, clause_id, kind, category, status, unknown_reason, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write evidence: prepare: %w", err)
	}
	defer stmt.Close()

	for i, ev := range evs {
		if ev.ID == "" {
			return fmt.Errorf("write evidence: record %d (%s) has no id", i, ev.ClauseID)
		}
		record, err := marshalRecord(ev)
		if err != nil {
			return fmt.Errorf("write evidence %s: %w", ev.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			ev.ID,
			runID,
			i,
			ev.Execution,
			ev.Behavior,
			ev.ClauseID,
			string(ev.Kind),
			string(ev.Category),
			string(ev.Status),
			string(ev.UnknownReason),
			record,
		)
		if err != nil {
			return fmt.Errorf("write evidence %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write evidence: commit: %w", err)
	}
	return nil
}

// ReadRun retrieves a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, scenario, tests_total, report
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns every run in the order they were written.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, scenario, tests_total, report
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
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

// ReadEvidence returns the evidence of a run in collection order.
// Returns an empty slice (not nil) if there is none.
func (s *Store) ReadEvidence(ctx context.Context, runID string) ([]evidence.ClauseEvidence, error) {
	return s.queryEvidence(ctx, `
		SELECT record FROM clause_evidence
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
}

// ReadEvidenceByStatus returns the evidence of a run with the given status.
func (s *Store) ReadEvidenceByStatus(ctx context.Context, runID string, status evidence.Status) ([]evidence.ClauseEvidence, error) {
	return s.queryEvidence(ctx, `
		SELECT record FROM clause_evidence
		WHERE run_id = ? AND status = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, string(status))
}

func (s *Store) queryEvidence(ctx context.Context, query string, args ...any) ([]evidence.ClauseEvidence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	evs := []evidence.ClauseEvidence{}
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		var ev evidence.ClauseEvidence
		if err := unmarshalRecord(record, &ev); err != nil {
			return nil, fmt.Errorf("evidence: %w", err)
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return evs, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run    Run
		report string
	)
	if err := row.Scan(&run.Seq, &run.ID, &run.Scenario, &run.TestsTotal, &report); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := unmarshalRecord(report, &run.Report); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
