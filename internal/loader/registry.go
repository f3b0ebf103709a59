package loader

import (
	"fmt"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

// LoadDistricts imports the district directory. Expected columns:
// nces_id, name, state.
func LoadDistricts(st *store.Store, path string) (*Result, error) {
	result := &Result{}
	err := forEachRow(path, result, func(r *row) error {
		ncesID := r.get("nces_id")
		if ncesID == "" {
			return fmt.Errorf("missing nces_id")
		}
		return st.UpsertDistrict(&store.District{
			NCESID: ncesID,
			Name:   r.get("name"),
			State:  r.get("state"),
		})
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d districts from %s", result.RowsLoaded, path)
	return result, nil
}

// LoadCrosswalk imports state-id to NCES-id mappings. Expected columns:
// state, state_district_id, nces_id, district_name.
func LoadCrosswalk(st *store.Store, path string) (*Result, error) {
	result := &Result{}
	err := forEachRow(path, result, func(r *row) error {
		state := r.get("state")
		stateID := r.get("state_district_id")
		ncesID := r.get("nces_id")
		if state == "" || stateID == "" || ncesID == "" {
			return fmt.Errorf("missing state, state_district_id, or nces_id")
		}
		return st.UpsertCrosswalkEntry(&store.CrosswalkEntry{
			State:           state,
			StateDistrictID: stateID,
			NCESID:          ncesID,
			DistrictName:    r.get("district_name"),
		})
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d crosswalk entries from %s", result.RowsLoaded, path)
	return result, nil
}

// LoadStateRequirements imports statutory minimum minutes. Expected
// columns: state, elementary_minutes, middle_minutes, high_minutes,
// default_minutes (bands optional).
func LoadStateRequirements(st *store.Store, path string) (*Result, error) {
	result := &Result{}
	err := forEachRow(path, result, func(r *row) error {
		state := r.get("state")
		if state == "" {
			return fmt.Errorf("missing state")
		}

		req := &store.StateRequirement{State: state}
		var err error
		if req.ElementaryMinutes, err = r.float("elementary_minutes"); err != nil {
			return err
		}
		if req.MiddleMinutes, err = r.float("middle_minutes"); err != nil {
			return err
		}
		if req.HighMinutes, err = r.float("high_minutes"); err != nil {
			return err
		}
		if req.DefaultMinutes, err = r.float("default_minutes"); err != nil {
			return err
		}

		return st.UpsertStateRequirement(req)
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d state requirements from %s", result.RowsLoaded, path)
	return result, nil
}

// LoadBellSchedules imports enriched bell schedules. Expected columns:
// nces_id, year, grade_level, instructional_minutes, and optionally
// start_time, end_time, confidence, method.
func LoadBellSchedules(st *store.Store, path string) (*Result, error) {
	result := &Result{}
	err := forEachRow(path, result, func(r *row) error {
		ncesID := r.get("nces_id")
		year := r.get("year")
		level := r.get("grade_level")
		if ncesID == "" || year == "" || level == "" {
			return fmt.Errorf("missing nces_id, year, or grade_level")
		}

		switch level {
		case store.GradeLevelElementary, store.GradeLevelMiddle, store.GradeLevelHigh:
		default:
			return fmt.Errorf("unknown grade_level %q", level)
		}

		minutes, err := r.requireFloat("instructional_minutes")
		if err != nil {
			return err
		}

		return st.UpsertBellSchedule(&store.BellSchedule{
			DistrictID:           ncesID,
			Year:                 year,
			GradeLevel:           level,
			StartTime:            r.get("start_time"),
			EndTime:              r.get("end_time"),
			InstructionalMinutes: minutes,
			Confidence:           r.get("confidence"),
			Method:               r.get("method"),
		})
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d bell schedules from %s", result.RowsLoaded, path)
	return result, nil
}
