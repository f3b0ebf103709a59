package store

import (
	"database/sql"
	"fmt"
)

// District is the canonical reference entity, keyed by the federal NCES
// identifier. Refreshed per federal release, never derived.
type District struct {
	NCESID     string
	Name       string
	State      string
	Enrollment sql.NullInt64
	Year       string
	DataSource string
}

// CrosswalkEntry maps a state's native district identifier to the NCES id.
type CrosswalkEntry struct {
	State           string
	StateDistrictID string
	NCESID          string
	DistrictName    string
}

// UpsertDistrict inserts or refreshes a district reference row.
func (s *Store) UpsertDistrict(d *District) error {
	_, err := s.db.Exec(`
		INSERT INTO districts (nces_id, name, state, enrollment, year, data_source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(nces_id) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			enrollment = excluded.enrollment,
			year = excluded.year,
			data_source = excluded.data_source
	`, d.NCESID, d.Name, d.State, d.Enrollment, d.Year, d.DataSource)
	if err != nil {
		return fmt.Errorf("failed to upsert district %s: %w", d.NCESID, err)
	}
	return nil
}

// GetDistrict retrieves a district by NCES id. Returns nil when absent.
func (s *Store) GetDistrict(ncesID string) (*District, error) {
	d := &District{}
	err := s.db.QueryRow(`
		SELECT nces_id, name, state, enrollment, COALESCE(year, ''), COALESCE(data_source, '')
		FROM districts WHERE nces_id = ?
	`, ncesID).Scan(&d.NCESID, &d.Name, &d.State, &d.Enrollment, &d.Year, &d.DataSource)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get district: %w", err)
	}

	return d, nil
}

// GetAllDistricts retrieves every district, ordered by NCES id so batch
// iteration order is deterministic.
func (s *Store) GetAllDistricts() ([]*District, error) {
	rows, err := s.db.Query(`
		SELECT nces_id, name, state, enrollment, COALESCE(year, ''), COALESCE(data_source, '')
		FROM districts
		ORDER BY nces_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query districts: %w", err)
	}
	defer rows.Close()

	var districts []*District
	for rows.Next() {
		d := &District{}
		if err := rows.Scan(&d.NCESID, &d.Name, &d.State, &d.Enrollment, &d.Year, &d.DataSource); err != nil {
			return nil, fmt.Errorf("failed to scan district: %w", err)
		}
		districts = append(districts, d)
	}

	return districts, rows.Err()
}

// CountDistricts returns the number of district reference rows.
func (s *Store) CountDistricts() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM districts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count districts: %w", err)
	}
	return count, nil
}

// CountOrphanFacts counts staff and enrollment fact rows whose district
// is missing from the directory. Orphans resolve fine by id but signal
// an incomplete district load.
func (s *Store) CountOrphanFacts() (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM staff_facts f
			 WHERE NOT EXISTS (SELECT 1 FROM districts d WHERE d.nces_id = f.district_id))
			+
			(SELECT COUNT(*) FROM enrollment_facts f
			 WHERE NOT EXISTS (SELECT 1 FROM districts d WHERE d.nces_id = f.district_id))
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orphan facts: %w", err)
	}
	return count, nil
}

// UpsertCrosswalkEntry inserts or replaces a crosswalk mapping.
func (s *Store) UpsertCrosswalkEntry(e *CrosswalkEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO crosswalk (state, state_district_id, nces_id, district_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(state, state_district_id) DO UPDATE SET
			nces_id = excluded.nces_id,
			district_name = excluded.district_name
	`, e.State, e.StateDistrictID, e.NCESID, e.DistrictName)
	if err != nil {
		return fmt.Errorf("failed to upsert crosswalk entry %s/%s: %w", e.State, e.StateDistrictID, err)
	}
	return nil
}

// GetCrosswalkEntry looks up a state-native id. Returns nil when unmapped.
func (s *Store) GetCrosswalkEntry(state, stateDistrictID string) (*CrosswalkEntry, error) {
	e := &CrosswalkEntry{}
	err := s.db.QueryRow(`
		SELECT state, state_district_id, nces_id, COALESCE(district_name, '')
		FROM crosswalk WHERE state = ? AND state_district_id = ?
	`, state, stateDistrictID).Scan(&e.State, &e.StateDistrictID, &e.NCESID, &e.DistrictName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crosswalk entry: %w", err)
	}

	return e, nil
}

// GetCrosswalkEntriesByState returns every mapping for one state.
func (s *Store) GetCrosswalkEntriesByState(state string) ([]*CrosswalkEntry, error) {
	rows, err := s.db.Query(`
		SELECT state, state_district_id, nces_id, COALESCE(district_name, '')
		FROM crosswalk WHERE state = ?
		ORDER BY state_district_id
	`, state)
	if err != nil {
		return nil, fmt.Errorf("failed to query crosswalk: %w", err)
	}
	defer rows.Close()

	var entries []*CrosswalkEntry
	for rows.Next() {
		e := &CrosswalkEntry{}
		if err := rows.Scan(&e.State, &e.StateDistrictID, &e.NCESID, &e.DistrictName); err != nil {
			return nil, fmt.Errorf("failed to scan crosswalk entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
