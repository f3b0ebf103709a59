package store

import (
	"database/sql"
	"fmt"
	"time"
)

// EnrollmentFact holds grade-level enrollment counts for one
// (district, year, source). Grade columns are NULL when the source did not
// break the grade out.
type EnrollmentFact struct {
	ID         int64
	DistrictID string
	SourceYear string
	SourceName string

	PreK         sql.NullFloat64
	Kindergarten sql.NullFloat64
	Grade01      sql.NullFloat64
	Grade02      sql.NullFloat64
	Grade03      sql.NullFloat64
	Grade04      sql.NullFloat64
	Grade05      sql.NullFloat64
	Grade06      sql.NullFloat64
	Grade07      sql.NullFloat64
	Grade08      sql.NullFloat64
	Grade09      sql.NullFloat64
	Grade10      sql.NullFloat64
	Grade11      sql.NullFloat64
	Grade12      sql.NullFloat64
	Ungraded     sql.NullFloat64

	CreatedAt time.Time
}

// elementaryGrades covers K through grade 5; secondaryGrades covers 6-12.
// Pre-K and ungraded are outside both bands.
func (f *EnrollmentFact) elementaryGrades() []sql.NullFloat64 {
	return []sql.NullFloat64{f.Kindergarten, f.Grade01, f.Grade02, f.Grade03, f.Grade04, f.Grade05}
}

func (f *EnrollmentFact) secondaryGrades() []sql.NullFloat64 {
	return []sql.NullFloat64{f.Grade06, f.Grade07, f.Grade08, f.Grade09, f.Grade10, f.Grade11, f.Grade12}
}

func sumGrades(grades []sql.NullFloat64) (float64, bool) {
	total := 0.0
	any := false
	for _, g := range grades {
		if g.Valid {
			total += g.Float64
			any = true
		}
	}
	return total, any
}

// Elementary returns the K-5 enrollment sub-total. The bool is false when
// no elementary grade was reported at all.
func (f *EnrollmentFact) Elementary() (float64, bool) {
	return sumGrades(f.elementaryGrades())
}

// Secondary returns the 6-12 enrollment sub-total.
func (f *EnrollmentFact) Secondary() (float64, bool) {
	return sumGrades(f.secondaryGrades())
}

// TotalK12 returns K-12 enrollment: elementary plus secondary, excluding
// Pre-K and ungraded.
func (f *EnrollmentFact) TotalK12() (float64, bool) {
	elem, okE := f.Elementary()
	sec, okS := f.Secondary()
	return elem + sec, okE || okS
}

const enrollmentFactColumns = `id, district_id, source_year, source_name,
	prek, kindergarten,
	grade_01, grade_02, grade_03, grade_04, grade_05, grade_06,
	grade_07, grade_08, grade_09, grade_10, grade_11, grade_12,
	ungraded, created_at`

func scanEnrollmentFact(scanner interface{ Scan(...any) error }) (*EnrollmentFact, error) {
	f := &EnrollmentFact{}
	err := scanner.Scan(
		&f.ID, &f.DistrictID, &f.SourceYear, &f.SourceName,
		&f.PreK, &f.Kindergarten,
		&f.Grade01, &f.Grade02, &f.Grade03, &f.Grade04, &f.Grade05, &f.Grade06,
		&f.Grade07, &f.Grade08, &f.Grade09, &f.Grade10, &f.Grade11, &f.Grade12,
		&f.Ungraded, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// InsertEnrollmentFact adds an enrollment fact, append-only like staff facts.
func (s *Store) InsertEnrollmentFact(f *EnrollmentFact) error {
	result, err := s.db.Exec(`
		INSERT INTO enrollment_facts (district_id, source_year, source_name,
			prek, kindergarten,
			grade_01, grade_02, grade_03, grade_04, grade_05, grade_06,
			grade_07, grade_08, grade_09, grade_10, grade_11, grade_12,
			ungraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, source_year, source_name) DO NOTHING
	`, f.DistrictID, f.SourceYear, f.SourceName,
		f.PreK, f.Kindergarten,
		f.Grade01, f.Grade02, f.Grade03, f.Grade04, f.Grade05, f.Grade06,
		f.Grade07, f.Grade08, f.Grade09, f.Grade10, f.Grade11, f.Grade12,
		f.Ungraded)
	if err != nil {
		return fmt.Errorf("failed to insert enrollment fact: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		f.ID = id
	}

	return nil
}

// GetEnrollmentFacts returns every enrollment fact for a district, newest
// year first, source name ascending.
func (s *Store) GetEnrollmentFacts(districtID string) ([]*EnrollmentFact, error) {
	rows, err := s.db.Query(`
		SELECT `+enrollmentFactColumns+`
		FROM enrollment_facts
		WHERE district_id = ?
		ORDER BY source_year DESC, source_name ASC
	`, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment facts: %w", err)
	}
	defer rows.Close()

	var facts []*EnrollmentFact
	for rows.Next() {
		f, err := scanEnrollmentFact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment fact: %w", err)
		}
		facts = append(facts, f)
	}

	return facts, rows.Err()
}

// CountEnrollmentFacts returns the total number of enrollment facts.
func (s *Store) CountEnrollmentFacts() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM enrollment_facts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollment facts: %w", err)
	}
	return count, nil
}
