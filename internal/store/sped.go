package store

import (
	"database/sql"
	"fmt"
)

// SPED estimate methods and confidence levels.
const (
	SpedMethodStateActual     = "state_actual"
	SpedMethodFederalBaseline = "federal_baseline"

	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// FederalBaselineYear is the school year of the federal SPED environment
// snapshot every baseline estimate is derived from.
const FederalBaselineYear = "2017-18"

// SpedEstimate is one candidate special-education split for a district:
// either a state actual self-contained/mainstreamed breakdown, or the
// 2017-18 federal baseline ratio applied to current enrollment.
type SpedEstimate struct {
	ID           int64
	DistrictID   string
	EstimateYear string
	Method       string

	SelfContained sql.NullFloat64
	Mainstreamed  sql.NullFloat64

	// TeacherRatio is the 2017-18 federal share of core teachers serving
	// self-contained settings. Teacher-level splits always come from this
	// ratio; states never report teacher counts by SPED environment.
	TeacherRatio sql.NullFloat64

	Confidence       string
	UsedStateAverage bool
	Notes            string
}

const spedEstimateColumns = `id, district_id, estimate_year, method,
	self_contained, mainstreamed, teacher_ratio,
	confidence, used_state_average, COALESCE(notes, '')`

func scanSpedEstimate(scanner interface{ Scan(...any) error }) (*SpedEstimate, error) {
	e := &SpedEstimate{}
	var usedAvg int
	err := scanner.Scan(
		&e.ID, &e.DistrictID, &e.EstimateYear, &e.Method,
		&e.SelfContained, &e.Mainstreamed, &e.TeacherRatio,
		&e.Confidence, &usedAvg, &e.Notes,
	)
	if err != nil {
		return nil, err
	}
	e.UsedStateAverage = usedAvg == 1
	return e, nil
}

// UpsertSpedEstimate inserts or refreshes a SPED estimate. Estimates are
// re-derived by importers, so unlike staff facts they may be replaced.
func (s *Store) UpsertSpedEstimate(e *SpedEstimate) error {
	usedAvg := 0
	if e.UsedStateAverage {
		usedAvg = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO sped_estimates (district_id, estimate_year, method,
			self_contained, mainstreamed, teacher_ratio,
			confidence, used_state_average, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, estimate_year, method) DO UPDATE SET
			self_contained = excluded.self_contained,
			mainstreamed = excluded.mainstreamed,
			teacher_ratio = excluded.teacher_ratio,
			confidence = excluded.confidence,
			used_state_average = excluded.used_state_average,
			notes = excluded.notes
	`, e.DistrictID, e.EstimateYear, e.Method,
		e.SelfContained, e.Mainstreamed, e.TeacherRatio,
		e.Confidence, usedAvg, e.Notes)
	if err != nil {
		return fmt.Errorf("failed to upsert sped estimate: %w", err)
	}
	return nil
}

// GetSpedEstimates returns every SPED candidate for a district, state
// actuals before baseline estimates, newest year first within each method.
func (s *Store) GetSpedEstimates(districtID string) ([]*SpedEstimate, error) {
	rows, err := s.db.Query(`
		SELECT `+spedEstimateColumns+`
		FROM sped_estimates
		WHERE district_id = ?
		ORDER BY method DESC, estimate_year DESC
	`, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sped estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*SpedEstimate
	for rows.Next() {
		e, err := scanSpedEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sped estimate: %w", err)
		}
		estimates = append(estimates, e)
	}

	return estimates, rows.Err()
}

// CountSpedEstimates returns the total number of SPED estimate rows.
func (s *Store) CountSpedEstimates() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sped_estimates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sped estimates: %w", err)
	}
	return count, nil
}
