package lct

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edmetrics/lct/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func f64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func seedDistrict(t *testing.T, st *store.Store, ncesID, state string) {
	t.Helper()
	require.NoError(t, st.UpsertDistrict(&store.District{
		NCESID: ncesID,
		Name:   "Test District " + ncesID,
		State:  state,
	}))
}

func seedBasicFacts(t *testing.T, st *store.Store, ncesID, year string) {
	t.Helper()
	require.NoError(t, st.InsertStaffFact(&store.StaffFact{
		DistrictID:         ncesID,
		SourceYear:         year,
		SourceName:         store.SourceFederal,
		TeachersElementary: f64(80),
		TeachersKindergarten: f64(20),
		TeachersSecondary:  f64(80),
		TeachersUngraded:   f64(5),
		Administrators:     f64(10),
	}))
	require.NoError(t, st.InsertEnrollmentFact(&store.EnrollmentFact{
		DistrictID:   ncesID,
		SourceYear:   year,
		SourceName:   store.SourceFederal,
		Kindergarten: f64(1000),
		Grade06:      f64(1000),
	}))
}

func TestRunnerRejectsBadConfig(t *testing.T) {
	st := newTestStore(t)

	_, err := New(&Config{Store: st, Mode: store.ModeTargetYear})
	require.Error(t, err, "target-year mode needs a year")

	_, err = New(&Config{Store: st, Mode: "FASTEST"})
	require.Error(t, err)
}

func TestRunnerBlendedEndToEnd(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	seedBasicFacts(t, st, "0601234", "2023-24")

	r, err := New(&Config{Store: st, Mode: store.ModeBlended})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DistrictsProcessed)
	require.Equal(t, 0, result.DistrictsSkipped)
	require.Equal(t, 7, result.Calculations, "seven scopes without a SPED segmentation")

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	require.Equal(t, store.RunStatusCompleted, run.Status)
	require.NotEmpty(t, run.QASummary)

	rows, err := st.GetLCTResultsByRun(result.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	var teachersOnly *store.LCTResult
	for _, row := range rows {
		if row.StaffScope == "teachers_only" {
			teachersOnly = row
		}
	}
	require.NotNil(t, teachersOnly)
	// 180 teachers over 2000 K-12 students at the default 360-minute day.
	require.InDelta(t, 32.4, teachersOnly.LCT.Float64, 1e-9)
	require.True(t, teachersOnly.Valid)
	require.Equal(t, "default", teachersOnly.MinutesSource)
	require.Equal(t, store.SourceFederal, teachersOnly.StaffSource)

	profile, err := st.GetResolvedProfile("0601234", "2023-24")
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.InDelta(t, 180, profile.TeachersOnly.Float64, 1e-9)
	require.InDelta(t, 185, profile.TeachersCore.Float64, 1e-9)
	require.False(t, profile.CoreSped.Valid, "no segmentation leaves SPED columns NULL")
}

func TestRunnerWithoutRunTracking(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	seedBasicFacts(t, st, "0601234", "2023-24")

	r, err := New(&Config{Store: st, Mode: store.ModeBlended, NoRunTracking: true})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DistrictsProcessed)
	require.NotNil(t, result.Summary)

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	require.Nil(t, run, "untracked runs never touch the ledger")

	latest, err := st.GetLatestRun()
	require.NoError(t, err)
	require.Nil(t, latest)

	rows, err := st.GetLCTResultsByRun(result.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 7, "results are still written under the run id")
}

func TestRunnerSpedScopesWithSegmentation(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	seedBasicFacts(t, st, "0601234", "2023-24")
	require.NoError(t, st.UpsertSpedEstimate(&store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  "2023-24",
		Method:        store.SpedMethodStateActual,
		SelfContained: f64(100),
		TeacherRatio:  f64(0.1),
		Confidence:    store.ConfidenceHigh,
	}))

	r, err := New(&Config{Store: st, Mode: store.ModeBlended})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, result.Calculations, "all ten scopes with a segmentation")

	rows, err := st.GetLCTResultsByRun(result.RunID)
	require.NoError(t, err)

	byScope := make(map[string]*store.LCTResult)
	for _, row := range rows {
		byScope[row.StaffScope] = row
	}

	coreSped := byScope["core_sped"]
	require.NotNil(t, coreSped)
	// 18.5 SPED teachers over 100 self-contained students: raw 66.6.
	require.InDelta(t, 66.6, coreSped.LCT.Float64, 1e-6)
	require.Equal(t, "sped_self_contained", coreSped.EnrollmentType)

	genEd := byScope["teachers_gened"]
	require.NotNil(t, genEd)
	require.InDelta(t, 1900, genEd.Enrollment, 1e-9, "GenEd is K-12 minus self-contained")
}

func TestRunnerSkipsDistrictWithoutData(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	seedBasicFacts(t, st, "0601234", "2023-24")
	seedDistrict(t, st, "0609999", "CA") // no facts at all

	r, err := New(&Config{Store: st, Mode: store.ModeBlended})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DistrictsProcessed)
	require.Equal(t, 1, result.DistrictsSkipped, "a bare district is a skip, not a failure")

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	require.Equal(t, store.RunStatusCompleted, run.Status)
	require.Equal(t, 1, run.DistrictsSkipped)
}

func TestRunnerTargetYearModeAnchorsEnrollment(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	// Enrollment only exists for an earlier year.
	require.NoError(t, st.InsertEnrollmentFact(&store.EnrollmentFact{
		DistrictID:   "0601234",
		SourceYear:   "2022-23",
		SourceName:   store.SourceFederal,
		Kindergarten: f64(1000),
	}))
	require.NoError(t, st.InsertStaffFact(&store.StaffFact{
		DistrictID:         "0601234",
		SourceYear:         "2023-24",
		SourceName:         store.SourceFederal,
		TeachersElementary: f64(50),
	}))

	r, err := New(&Config{Store: st, Mode: store.ModeTargetYear, TargetYear: "2023-24"})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DistrictsSkipped, "no enrollment at the anchor year")

	r, err = New(&Config{Store: st, Mode: store.ModeTargetYear, TargetYear: "2022-23"})
	require.NoError(t, err)

	result, err = r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DistrictsProcessed, "staff blends around the anchored enrollment")
}

func TestRunnerRecomputationIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "CA")
	seedBasicFacts(t, st, "0601234", "2023-24")

	r, err := New(&Config{Store: st, Mode: store.ModeBlended})
	require.NoError(t, err)

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)

	firstRows, err := st.GetLCTResultsByRun(first.RunID)
	require.NoError(t, err)
	secondRows, err := st.GetLCTResultsByRun(second.RunID)
	require.NoError(t, err)
	require.Equal(t, len(firstRows), len(secondRows))

	for i := range firstRows {
		require.Equal(t, firstRows[i].StaffScope, secondRows[i].StaffScope)
		require.InDelta(t, firstRows[i].LCT.Float64, secondRows[i].LCT.Float64, 1e-9)
	}

	// The live profile points at the latest run.
	profile, err := st.GetResolvedProfile("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, second.RunID, profile.RunID)
}

func TestRunnerVolatileFlag(t *testing.T) {
	st := newTestStore(t)
	seedDistrict(t, st, "0601234", "MT")
	require.NoError(t, st.InsertStaffFact(&store.StaffFact{
		DistrictID:         "0601234",
		SourceYear:         "2023-24",
		SourceName:         store.SourceFederal,
		TeachersElementary: f64(4),
	}))
	require.NoError(t, st.InsertEnrollmentFact(&store.EnrollmentFact{
		DistrictID:   "0601234",
		SourceYear:   "2023-24",
		SourceName:   store.SourceFederal,
		Kindergarten: f64(30),
	}))

	r, err := New(&Config{Store: st, Mode: store.ModeBlended})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	rows, err := st.GetLCTResultsByRun(result.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, row := range rows {
		require.Contains(t, row.Notes, FlagVolatile)
	}
}
