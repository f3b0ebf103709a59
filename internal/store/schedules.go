package store

import (
	"database/sql"
	"fmt"
)

// Grade levels a bell schedule or statutory requirement applies to.
const (
	GradeLevelElementary = "elementary"
	GradeLevelMiddle     = "middle"
	GradeLevelHigh       = "high"
)

// BellSchedule is an actual instructional-day record for one
// (district, year, grade level), collected by enrichment or human entry.
type BellSchedule struct {
	ID                   int64
	DistrictID           string
	Year                 string
	GradeLevel           string
	StartTime            string
	EndTime              string
	InstructionalMinutes float64
	Confidence           string
	Method               string
}

// StateRequirement holds a state's statutory minimum instructional minutes
// per grade band, plus a default when the band is not specified.
type StateRequirement struct {
	State             string
	ElementaryMinutes sql.NullFloat64
	MiddleMinutes     sql.NullFloat64
	HighMinutes       sql.NullFloat64
	DefaultMinutes    sql.NullFloat64
}

// MinutesFor returns the statutory minutes for a grade level, falling back
// to the state's default band when the specific band is absent.
func (r *StateRequirement) MinutesFor(gradeLevel string) (float64, bool) {
	var band sql.NullFloat64
	switch gradeLevel {
	case GradeLevelElementary:
		band = r.ElementaryMinutes
	case GradeLevelMiddle:
		band = r.MiddleMinutes
	case GradeLevelHigh:
		band = r.HighMinutes
	}

	if band.Valid {
		return band.Float64, true
	}
	if r.DefaultMinutes.Valid {
		return r.DefaultMinutes.Float64, true
	}
	return 0, false
}

// UpsertBellSchedule inserts or refreshes a bell schedule. Unique per
// (district, year, grade level); later enrichment passes may improve on
// earlier ones.
func (s *Store) UpsertBellSchedule(b *BellSchedule) error {
	_, err := s.db.Exec(`
		INSERT INTO bell_schedules (district_id, year, grade_level,
			start_time, end_time, instructional_minutes, confidence, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, year, grade_level) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			instructional_minutes = excluded.instructional_minutes,
			confidence = excluded.confidence,
			method = excluded.method
	`, b.DistrictID, b.Year, b.GradeLevel,
		b.StartTime, b.EndTime, b.InstructionalMinutes, b.Confidence, b.Method)
	if err != nil {
		return fmt.Errorf("failed to upsert bell schedule: %w", err)
	}
	return nil
}

// GetBellSchedules returns every bell schedule for a district, newest year
// first so the resolver sees recent schedules before stale ones.
func (s *Store) GetBellSchedules(districtID string) ([]*BellSchedule, error) {
	rows, err := s.db.Query(`
		SELECT id, district_id, year, grade_level,
		       COALESCE(start_time, ''), COALESCE(end_time, ''),
		       instructional_minutes, COALESCE(confidence, ''), COALESCE(method, '')
		FROM bell_schedules
		WHERE district_id = ?
		ORDER BY year DESC, grade_level ASC
	`, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bell schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*BellSchedule
	for rows.Next() {
		b := &BellSchedule{}
		err := rows.Scan(&b.ID, &b.DistrictID, &b.Year, &b.GradeLevel,
			&b.StartTime, &b.EndTime, &b.InstructionalMinutes, &b.Confidence, &b.Method)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bell schedule: %w", err)
		}
		schedules = append(schedules, b)
	}

	return schedules, rows.Err()
}

// CountBellSchedules returns the total number of bell schedule rows.
func (s *Store) CountBellSchedules() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM bell_schedules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bell schedules: %w", err)
	}
	return count, nil
}

// UpsertStateRequirement inserts or refreshes a statutory minutes row.
func (s *Store) UpsertStateRequirement(r *StateRequirement) error {
	_, err := s.db.Exec(`
		INSERT INTO state_requirements (state, elementary_minutes, middle_minutes, high_minutes, default_minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(state) DO UPDATE SET
			elementary_minutes = excluded.elementary_minutes,
			middle_minutes = excluded.middle_minutes,
			high_minutes = excluded.high_minutes,
			default_minutes = excluded.default_minutes
	`, r.State, r.ElementaryMinutes, r.MiddleMinutes, r.HighMinutes, r.DefaultMinutes)
	if err != nil {
		return fmt.Errorf("failed to upsert state requirement for %s: %w", r.State, err)
	}
	return nil
}

// GetStateRequirement returns a state's statutory minutes. Nil when the
// state has no row.
func (s *Store) GetStateRequirement(state string) (*StateRequirement, error) {
	r := &StateRequirement{}
	err := s.db.QueryRow(`
		SELECT state, elementary_minutes, middle_minutes, high_minutes, default_minutes
		FROM state_requirements WHERE state = ?
	`, state).Scan(&r.State, &r.ElementaryMinutes, &r.MiddleMinutes, &r.HighMinutes, &r.DefaultMinutes)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state requirement: %w", err)
	}

	return r, nil
}
