package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Calculation modes and run statuses.
const (
	ModeBlended    = "BLENDED"
	ModeTargetYear = "TARGET_YEAR"

	RunStatusOpen      = "open"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CalculationRun is one row of the run ledger. Created open at batch start
// and finalized exactly once: completed with counts and a QA summary, or
// failed with a reason.
type CalculationRun struct {
	RunID      string
	Mode       string
	TargetYear string
	Status     string

	StartedAt   sql.NullTime
	CompletedAt sql.NullTime

	DistrictsProcessed int
	DistrictsSkipped   int
	Calculations       int

	QASummary     string
	FailureReason string
}

// StartRun opens a new run ledger entry.
func (s *Store) StartRun(runID, mode, targetYear string) (*CalculationRun, error) {
	run := &CalculationRun{
		RunID:      runID,
		Mode:       mode,
		TargetYear: targetYear,
		Status:     RunStatusOpen,
		StartedAt:  sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}

	_, err := s.db.Exec(`
		INSERT INTO calculation_runs (run_id, mode, target_year, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.Mode, run.TargetYear, run.Status, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	return run, nil
}

// CompleteRun finalizes an open run with its counts and QA summary. A run
// that is not open cannot be completed.
func (s *Store) CompleteRun(runID string, processed, skipped, calculations int, qaSummary string) error {
	result, err := s.db.Exec(`
		UPDATE calculation_runs
		SET status = ?, completed_at = ?,
		    districts_processed = ?, districts_skipped = ?, calculations = ?,
		    qa_summary = ?
		WHERE run_id = ? AND status = ?
	`, RunStatusCompleted, time.Now().UTC(), processed, skipped, calculations, qaSummary, runID, RunStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s is not open", runID)
	}

	return nil
}

// FailRun marks an open run as failed with a reason.
func (s *Store) FailRun(runID, reason string) error {
	result, err := s.db.Exec(`
		UPDATE calculation_runs
		SET status = ?, completed_at = ?, failure_reason = ?
		WHERE run_id = ? AND status = ?
	`, RunStatusFailed, time.Now().UTC(), reason, runID, RunStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s is not open", runID)
	}

	return nil
}

const runColumns = `run_id, mode, COALESCE(target_year, ''), status,
	started_at, completed_at,
	districts_processed, districts_skipped, calculations,
	COALESCE(qa_summary, ''), COALESCE(failure_reason, '')`

func scanRun(scanner interface{ Scan(...any) error }) (*CalculationRun, error) {
	r := &CalculationRun{}
	err := scanner.Scan(
		&r.RunID, &r.Mode, &r.TargetYear, &r.Status,
		&r.StartedAt, &r.CompletedAt,
		&r.DistrictsProcessed, &r.DistrictsSkipped, &r.Calculations,
		&r.QASummary, &r.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRun retrieves a run ledger entry by id. Nil when absent.
func (s *Store) GetRun(runID string) (*CalculationRun, error) {
	r, err := scanRun(s.db.QueryRow(`
		SELECT `+runColumns+`
		FROM calculation_runs WHERE run_id = ?
	`, runID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return r, nil
}

// GetLatestRun returns the most recently started run, or nil when the
// ledger is empty.
func (s *Store) GetLatestRun() (*CalculationRun, error) {
	r, err := scanRun(s.db.QueryRow(`
		SELECT ` + runColumns + `
		FROM calculation_runs
		ORDER BY started_at DESC LIMIT 1
	`))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return r, nil
}

// ListRuns returns every run ledger entry, newest first.
func (s *Store) ListRuns() ([]*CalculationRun, error) {
	rows, err := s.db.Query(`
		SELECT ` + runColumns + `
		FROM calculation_runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*CalculationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
