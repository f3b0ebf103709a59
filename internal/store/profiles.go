package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ResolvedStaffProfile is the derived result of applying precedence across
// all staff facts for one (district, target year): the ten scope totals
// plus the metadata explaining which sources won. Owned by the resolver,
// never imported; exactly one live row per (district, target year).
type ResolvedStaffProfile struct {
	DistrictID string
	TargetYear string

	TeachersOnly             sql.NullFloat64
	TeachersCore             sql.NullFloat64
	Instructional            sql.NullFloat64
	InstructionalPlusSupport sql.NullFloat64
	AllStaff                 sql.NullFloat64
	TeachersElementary       sql.NullFloat64
	TeachersSecondary        sql.NullFloat64
	CoreSped                 sql.NullFloat64
	TeachersGenEd            sql.NullFloat64
	InstructionalSped        sql.NullFloat64

	PrimarySource     string
	PrimarySourceYear string
	SourcesUsed       string
	ResolutionNotes   string
	RunID             string
	UpdatedAt         time.Time
}

const profileUpsertSQL = `
	INSERT INTO resolved_staff_profiles (district_id, target_year,
		teachers_only, teachers_core, instructional, instructional_plus_support, all_staff,
		teachers_elementary, teachers_secondary, core_sped, teachers_gened, instructional_sped,
		primary_source, primary_source_year, sources_used, resolution_notes, run_id, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(district_id, target_year) DO UPDATE SET
		teachers_only = excluded.teachers_only,
		teachers_core = excluded.teachers_core,
		instructional = excluded.instructional,
		instructional_plus_support = excluded.instructional_plus_support,
		all_staff = excluded.all_staff,
		teachers_elementary = excluded.teachers_elementary,
		teachers_secondary = excluded.teachers_secondary,
		core_sped = excluded.core_sped,
		teachers_gened = excluded.teachers_gened,
		instructional_sped = excluded.instructional_sped,
		primary_source = excluded.primary_source,
		primary_source_year = excluded.primary_source_year,
		sources_used = excluded.sources_used,
		resolution_notes = excluded.resolution_notes,
		run_id = excluded.run_id,
		updated_at = CURRENT_TIMESTAMP
`

func profileUpsertArgs(p *ResolvedStaffProfile) []any {
	return []any{
		p.DistrictID, p.TargetYear,
		p.TeachersOnly, p.TeachersCore, p.Instructional, p.InstructionalPlusSupport, p.AllStaff,
		p.TeachersElementary, p.TeachersSecondary, p.CoreSped, p.TeachersGenEd, p.InstructionalSped,
		p.PrimarySource, p.PrimarySourceYear, p.SourcesUsed, p.ResolutionNotes, p.RunID,
	}
}

// UpsertResolvedProfile writes a derived profile, replacing the live row.
func (s *Store) UpsertResolvedProfile(p *ResolvedStaffProfile) error {
	if _, err := s.db.Exec(profileUpsertSQL, profileUpsertArgs(p)...); err != nil {
		return fmt.Errorf("failed to upsert resolved profile: %w", err)
	}
	return nil
}

// UpsertResolvedProfileTx is UpsertResolvedProfile inside a caller-owned
// transaction, used by the per-district batch write.
func (s *Store) UpsertResolvedProfileTx(tx *sql.Tx, p *ResolvedStaffProfile) error {
	if _, err := tx.Exec(profileUpsertSQL, profileUpsertArgs(p)...); err != nil {
		return fmt.Errorf("failed to upsert resolved profile: %w", err)
	}
	return nil
}

const profileColumns = `district_id, target_year,
	teachers_only, teachers_core, instructional, instructional_plus_support, all_staff,
	teachers_elementary, teachers_secondary, core_sped, teachers_gened, instructional_sped,
	COALESCE(primary_source, ''), COALESCE(primary_source_year, ''),
	COALESCE(sources_used, ''), COALESCE(resolution_notes, ''), COALESCE(run_id, ''), updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (*ResolvedStaffProfile, error) {
	p := &ResolvedStaffProfile{}
	err := scanner.Scan(
		&p.DistrictID, &p.TargetYear,
		&p.TeachersOnly, &p.TeachersCore, &p.Instructional, &p.InstructionalPlusSupport, &p.AllStaff,
		&p.TeachersElementary, &p.TeachersSecondary, &p.CoreSped, &p.TeachersGenEd, &p.InstructionalSped,
		&p.PrimarySource, &p.PrimarySourceYear, &p.SourcesUsed, &p.ResolutionNotes, &p.RunID, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetResolvedProfile returns the live profile for (district, target year),
// or nil when no run has produced one.
func (s *Store) GetResolvedProfile(districtID, targetYear string) (*ResolvedStaffProfile, error) {
	p, err := scanProfile(s.db.QueryRow(`
		SELECT `+profileColumns+`
		FROM resolved_staff_profiles
		WHERE district_id = ? AND target_year = ?
	`, districtID, targetYear))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resolved profile: %w", err)
	}

	return p, nil
}

// GetResolvedProfilesByRun returns every profile written by one run.
func (s *Store) GetResolvedProfilesByRun(runID string) ([]*ResolvedStaffProfile, error) {
	rows, err := s.db.Query(`
		SELECT `+profileColumns+`
		FROM resolved_staff_profiles
		WHERE run_id = ?
		ORDER BY district_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*ResolvedStaffProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolved profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}
