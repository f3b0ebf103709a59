package store

import (
	"database/sql"
	"fmt"
)

// LCTResult is one computed metric value for (run, district, scope), with
// every input that produced it. LCT is NULL when the metric was undefined
// (no staff or no enrollment) but the row is still exported.
type LCTResult struct {
	ID         int64
	RunID      string
	DistrictID string
	Year       string
	StaffScope string

	LCT sql.NullFloat64

	InstructionalMinutes float64
	MinutesSource        string
	MinutesYear          string

	StaffCount  float64
	StaffSource string
	StaffYear   string

	Enrollment     float64
	EnrollmentType string

	Valid bool
	Notes string
}

const resultInsertSQL = `
	INSERT INTO lct_results (run_id, district_id, year, staff_scope,
		lct_value, instructional_minutes, minutes_source, minutes_year,
		staff_count, staff_source, staff_year,
		enrollment, enrollment_type, valid, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func resultInsertArgs(r *LCTResult) []any {
	valid := 0
	if r.Valid {
		valid = 1
	}
	return []any{
		r.RunID, r.DistrictID, r.Year, r.StaffScope,
		r.LCT, r.InstructionalMinutes, r.MinutesSource, r.MinutesYear,
		r.StaffCount, r.StaffSource, r.StaffYear,
		r.Enrollment, r.EnrollmentType, valid, r.Notes,
	}
}

// InsertLCTResult writes a calculation result row.
func (s *Store) InsertLCTResult(r *LCTResult) error {
	result, err := s.db.Exec(resultInsertSQL, resultInsertArgs(r)...)
	if err != nil {
		return fmt.Errorf("failed to insert lct result: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// InsertLCTResultTx is InsertLCTResult inside a caller-owned transaction.
func (s *Store) InsertLCTResultTx(tx *sql.Tx, r *LCTResult) error {
	result, err := tx.Exec(resultInsertSQL, resultInsertArgs(r)...)
	if err != nil {
		return fmt.Errorf("failed to insert lct result: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

const resultColumns = `id, run_id, district_id, year, staff_scope,
	lct_value, instructional_minutes,
	COALESCE(minutes_source, ''), COALESCE(minutes_year, ''),
	staff_count, COALESCE(staff_source, ''), COALESCE(staff_year, ''),
	enrollment, COALESCE(enrollment_type, ''), valid, COALESCE(notes, '')`

func scanResult(scanner interface{ Scan(...any) error }) (*LCTResult, error) {
	r := &LCTResult{}
	var valid int
	err := scanner.Scan(
		&r.ID, &r.RunID, &r.DistrictID, &r.Year, &r.StaffScope,
		&r.LCT, &r.InstructionalMinutes,
		&r.MinutesSource, &r.MinutesYear,
		&r.StaffCount, &r.StaffSource, &r.StaffYear,
		&r.Enrollment, &r.EnrollmentType, &valid, &r.Notes,
	)
	if err != nil {
		return nil, err
	}
	r.Valid = valid == 1
	return r, nil
}

// GetLCTResultsByRun returns every result row for one run, ordered for
// stable export.
func (s *Store) GetLCTResultsByRun(runID string) ([]*LCTResult, error) {
	rows, err := s.db.Query(`
		SELECT `+resultColumns+`
		FROM lct_results
		WHERE run_id = ?
		ORDER BY district_id, staff_scope
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lct results: %w", err)
	}
	defer rows.Close()

	var results []*LCTResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lct result: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// GetLCTResultsByDistrict returns every result ever computed for a
// district, newest run rows last.
func (s *Store) GetLCTResultsByDistrict(districtID string) ([]*LCTResult, error) {
	rows, err := s.db.Query(`
		SELECT `+resultColumns+`
		FROM lct_results
		WHERE district_id = ?
		ORDER BY id
	`, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lct results: %w", err)
	}
	defer rows.Close()

	var results []*LCTResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lct result: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// CountLCTResultsByRun returns the number of result rows in a run.
func (s *Store) CountLCTResultsByRun(runID string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM lct_results WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lct results: %w", err)
	}
	return count, nil
}
