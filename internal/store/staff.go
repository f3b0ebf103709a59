package store

import (
	"database/sql"
	"fmt"
	"time"
)

// StaffFact holds category-level staff FTE counts for one
// (district, year, source). NULL columns mean the source never reported
// the category, which is different from a reported zero.
type StaffFact struct {
	ID         int64
	DistrictID string
	SourceYear string
	SourceName string

	TeachersPreK         sql.NullFloat64
	TeachersKindergarten sql.NullFloat64
	TeachersElementary   sql.NullFloat64
	TeachersSecondary    sql.NullFloat64
	TeachersUngraded     sql.NullFloat64

	InstructionalCoordinators sql.NullFloat64
	Paraprofessionals         sql.NullFloat64

	Counselors     sql.NullFloat64
	Psychologists  sql.NullFloat64
	StudentSupport sql.NullFloat64

	Administrators sql.NullFloat64
	Librarians     sql.NullFloat64
	OtherStaff     sql.NullFloat64

	CreatedAt time.Time
}

const staffFactColumns = `id, district_id, source_year, source_name,
	teachers_prek, teachers_kindergarten, teachers_elementary, teachers_secondary, teachers_ungraded,
	instructional_coordinators, paraprofessionals,
	counselors, psychologists, student_support,
	administrators, librarians, other_staff, created_at`

func scanStaffFact(scanner interface{ Scan(...any) error }) (*StaffFact, error) {
	f := &StaffFact{}
	err := scanner.Scan(
		&f.ID, &f.DistrictID, &f.SourceYear, &f.SourceName,
		&f.TeachersPreK, &f.TeachersKindergarten, &f.TeachersElementary, &f.TeachersSecondary, &f.TeachersUngraded,
		&f.InstructionalCoordinators, &f.Paraprofessionals,
		&f.Counselors, &f.Psychologists, &f.StudentSupport,
		&f.Administrators, &f.Librarians, &f.OtherStaff, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// InsertStaffFact adds a staff fact. Facts are append-only: a second import
// of the same (district, year, source) is ignored rather than overwriting.
func (s *Store) InsertStaffFact(f *StaffFact) error {
	result, err := s.db.Exec(`
		INSERT INTO staff_facts (district_id, source_year, source_name,
			teachers_prek, teachers_kindergarten, teachers_elementary, teachers_secondary, teachers_ungraded,
			instructional_coordinators, paraprofessionals,
			counselors, psychologists, student_support,
			administrators, librarians, other_staff)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district_id, source_year, source_name) DO NOTHING
	`, f.DistrictID, f.SourceYear, f.SourceName,
		f.TeachersPreK, f.TeachersKindergarten, f.TeachersElementary, f.TeachersSecondary, f.TeachersUngraded,
		f.InstructionalCoordinators, f.Paraprofessionals,
		f.Counselors, f.Psychologists, f.StudentSupport,
		f.Administrators, f.Librarians, f.OtherStaff)
	if err != nil {
		return fmt.Errorf("failed to insert staff fact: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		f.ID = id
	}

	return nil
}

// GetStaffFacts returns every staff fact for a district, newest year first,
// source name as the tie-breaker so candidate ordering is total.
func (s *Store) GetStaffFacts(districtID string) ([]*StaffFact, error) {
	rows, err := s.db.Query(`
		SELECT `+staffFactColumns+`
		FROM staff_facts
		WHERE district_id = ?
		ORDER BY source_year DESC, source_name ASC
	`, districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff facts: %w", err)
	}
	defer rows.Close()

	var facts []*StaffFact
	for rows.Next() {
		f, err := scanStaffFact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff fact: %w", err)
		}
		facts = append(facts, f)
	}

	return facts, rows.Err()
}

// CountStaffFacts returns the total number of staff facts.
func (s *Store) CountStaffFacts() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM staff_facts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count staff facts: %w", err)
	}
	return count, nil
}
