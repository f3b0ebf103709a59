package loader

import (
	"fmt"

	"github.com/edmetrics/lct/internal/crosswalk"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

// districtID resolves the row's district to an NCES id. Federal extracts
// carry nces_id directly; state extracts carry state-native ids that go
// through the crosswalk, with the district name as the fallback key.
func districtID(r *row, xwalk *crosswalk.Resolver) (string, error) {
	if id := r.get("nces_id"); id != "" {
		return id, nil
	}

	state := r.get("state")
	stateID := r.get("state_district_id")
	if state == "" || stateID == "" {
		return "", fmt.Errorf("missing nces_id and no state/state_district_id to cross-walk")
	}
	return xwalk.Lookup(state, stateID, r.get("district_name"))
}

// LoadStaffFacts imports staff category counts. Expected columns:
// source_year, source_name, a district identifier (see districtID), and
// any subset of the staff category columns. Absent categories stay NULL.
func LoadStaffFacts(st *store.Store, path string) (*Result, error) {
	xwalk := crosswalk.New(st)
	result := &Result{}

	err := forEachRow(path, result, func(r *row) error {
		id, err := districtID(r, xwalk)
		if err != nil {
			return err
		}
		year := r.get("source_year")
		source := r.get("source_name")
		if year == "" || source == "" {
			return fmt.Errorf("missing source_year or source_name")
		}

		fact := &store.StaffFact{
			DistrictID: id,
			SourceYear: year,
			SourceName: source,
		}

		if fact.TeachersPreK, err = r.float("teachers_prek"); err != nil {
			return err
		}
		if fact.TeachersKindergarten, err = r.float("teachers_kindergarten"); err != nil {
			return err
		}
		if fact.TeachersElementary, err = r.float("teachers_elementary"); err != nil {
			return err
		}
		if fact.TeachersSecondary, err = r.float("teachers_secondary"); err != nil {
			return err
		}
		if fact.TeachersUngraded, err = r.float("teachers_ungraded"); err != nil {
			return err
		}
		if fact.InstructionalCoordinators, err = r.float("instructional_coordinators"); err != nil {
			return err
		}
		if fact.Paraprofessionals, err = r.float("paraprofessionals"); err != nil {
			return err
		}
		if fact.Counselors, err = r.float("counselors"); err != nil {
			return err
		}
		if fact.Psychologists, err = r.float("psychologists"); err != nil {
			return err
		}
		if fact.StudentSupport, err = r.float("student_support"); err != nil {
			return err
		}
		if fact.Administrators, err = r.float("administrators"); err != nil {
			return err
		}
		if fact.Librarians, err = r.float("librarians"); err != nil {
			return err
		}
		if fact.OtherStaff, err = r.float("other_staff"); err != nil {
			return err
		}

		return st.InsertStaffFact(fact)
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d staff facts from %s", result.RowsLoaded, path)
	return result, nil
}

// LoadEnrollmentFacts imports grade-level enrollment. Expected columns:
// source_year, source_name, a district identifier, and any subset of
// prek, kindergarten, grade_01..grade_12, ungraded.
func LoadEnrollmentFacts(st *store.Store, path string) (*Result, error) {
	xwalk := crosswalk.New(st)
	result := &Result{}

	err := forEachRow(path, result, func(r *row) error {
		id, err := districtID(r, xwalk)
		if err != nil {
			return err
		}
		year := r.get("source_year")
		source := r.get("source_name")
		if year == "" || source == "" {
			return fmt.Errorf("missing source_year or source_name")
		}

		fact := &store.EnrollmentFact{
			DistrictID: id,
			SourceYear: year,
			SourceName: source,
		}

		if fact.PreK, err = r.float("prek"); err != nil {
			return err
		}
		if fact.Kindergarten, err = r.float("kindergarten"); err != nil {
			return err
		}
		if fact.Grade01, err = r.float("grade_01"); err != nil {
			return err
		}
		if fact.Grade02, err = r.float("grade_02"); err != nil {
			return err
		}
		if fact.Grade03, err = r.float("grade_03"); err != nil {
			return err
		}
		if fact.Grade04, err = r.float("grade_04"); err != nil {
			return err
		}
		if fact.Grade05, err = r.float("grade_05"); err != nil {
			return err
		}
		if fact.Grade06, err = r.float("grade_06"); err != nil {
			return err
		}
		if fact.Grade07, err = r.float("grade_07"); err != nil {
			return err
		}
		if fact.Grade08, err = r.float("grade_08"); err != nil {
			return err
		}
		if fact.Grade09, err = r.float("grade_09"); err != nil {
			return err
		}
		if fact.Grade10, err = r.float("grade_10"); err != nil {
			return err
		}
		if fact.Grade11, err = r.float("grade_11"); err != nil {
			return err
		}
		if fact.Grade12, err = r.float("grade_12"); err != nil {
			return err
		}
		if fact.Ungraded, err = r.float("ungraded"); err != nil {
			return err
		}

		return st.InsertEnrollmentFact(fact)
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d enrollment facts from %s", result.RowsLoaded, path)
	return result, nil
}

// LoadSpedEstimates imports SPED segmentation estimates. Expected
// columns: a district identifier, estimate_year, method, confidence, and
// optionally self_contained, mainstreamed, teacher_ratio,
// used_state_average, notes.
func LoadSpedEstimates(st *store.Store, path string) (*Result, error) {
	xwalk := crosswalk.New(st)
	result := &Result{}

	err := forEachRow(path, result, func(r *row) error {
		id, err := districtID(r, xwalk)
		if err != nil {
			return err
		}
		year := r.get("estimate_year")
		method := r.get("method")
		if year == "" {
			return fmt.Errorf("missing estimate_year")
		}
		switch method {
		case store.SpedMethodStateActual, store.SpedMethodFederalBaseline:
		default:
			return fmt.Errorf("unknown method %q", method)
		}

		estimate := &store.SpedEstimate{
			DistrictID:       id,
			EstimateYear:     year,
			Method:           method,
			Confidence:       r.get("confidence"),
			UsedStateAverage: r.get("used_state_average") == "true",
			Notes:            r.get("notes"),
		}
		if estimate.Confidence == "" {
			estimate.Confidence = store.ConfidenceMedium
		}

		if estimate.SelfContained, err = r.float("self_contained"); err != nil {
			return err
		}
		if estimate.Mainstreamed, err = r.float("mainstreamed"); err != nil {
			return err
		}
		if estimate.TeacherRatio, err = r.float("teacher_ratio"); err != nil {
			return err
		}

		return st.UpsertSpedEstimate(estimate)
	})
	if err != nil {
		return nil, err
	}

	util.InfoLog("Loaded %d SPED estimates from %s", result.RowsLoaded, path)
	return result, nil
}
