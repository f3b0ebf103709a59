package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func f64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestMigrateIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CheckIntegrity())

	// A second migrate pass over the same schema is a no-op.
	require.NoError(t, st.migrate())
	require.NoError(t, st.CheckIntegrity())
}

func TestDistrictRoundTrip(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.UpsertDistrict(&District{
		NCESID: "0601234",
		Name:   "Alameda Unified",
		State:  "CA",
	}))

	d, err := st.GetDistrict("0601234")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, "Alameda Unified", d.Name)

	// Upsert replaces, never duplicates.
	require.NoError(t, st.UpsertDistrict(&District{
		NCESID: "0601234",
		Name:   "Alameda Unified School District",
		State:  "CA",
	}))
	count, err := st.CountDistricts()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGetAllDistrictsOrdered(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"0602000", "0601000", "0603000"} {
		require.NoError(t, st.UpsertDistrict(&District{NCESID: id, Name: id, State: "CA"}))
	}

	districts, err := st.GetAllDistricts()
	require.NoError(t, err)
	require.Len(t, districts, 3)
	require.Equal(t, "0601000", districts[0].NCESID)
	require.Equal(t, "0603000", districts[2].NCESID)
}

func TestStaffFactsAppendOnly(t *testing.T) {
	st := newTestStore(t)

	fact := &StaffFact{
		DistrictID:         "0601234",
		SourceYear:         "2023-24",
		SourceName:         SourceFederal,
		TeachersElementary: f64(100),
	}
	require.NoError(t, st.InsertStaffFact(fact))

	// A second import of the same (district, year, source) never
	// overwrites the first.
	fact.TeachersElementary = f64(999)
	require.NoError(t, st.InsertStaffFact(fact))

	facts, err := st.GetStaffFacts("0601234")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.InDelta(t, 100, facts[0].TeachersElementary.Float64, 1e-9)
}

func TestStaffFactsOrdering(t *testing.T) {
	st := newTestStore(t)

	for _, f := range []struct{ year, source string }{
		{"2022-23", "sea_ca"},
		{"2023-24", SourceFederal},
		{"2023-24", "sea_ca"},
	} {
		require.NoError(t, st.InsertStaffFact(&StaffFact{
			DistrictID: "0601234",
			SourceYear: f.year,
			SourceName: f.source,
		}))
	}

	facts, err := st.GetStaffFacts("0601234")
	require.NoError(t, err)
	require.Len(t, facts, 3)
	require.Equal(t, "2023-24", facts[0].SourceYear)
	require.Equal(t, SourceFederal, facts[0].SourceName, "year desc then source asc")
	require.Equal(t, "2022-23", facts[2].SourceYear)
}

func TestSpedEstimatesOrdering(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.UpsertSpedEstimate(&SpedEstimate{
		DistrictID:   "0601234",
		EstimateYear: FederalBaselineYear,
		Method:       SpedMethodFederalBaseline,
		Confidence:   ConfidenceMedium,
	}))
	require.NoError(t, st.UpsertSpedEstimate(&SpedEstimate{
		DistrictID:   "0601234",
		EstimateYear: "2023-24",
		Method:       SpedMethodStateActual,
		Confidence:   ConfidenceHigh,
	}))

	estimates, err := st.GetSpedEstimates("0601234")
	require.NoError(t, err)
	require.Len(t, estimates, 2)
	require.Equal(t, SpedMethodStateActual, estimates[0].Method, "state actuals lead")
}

func TestRunLedgerLifecycle(t *testing.T) {
	st := newTestStore(t)

	run, err := st.StartRun("run-1", ModeBlended, "")
	require.NoError(t, err)
	require.Equal(t, RunStatusOpen, run.Status)

	require.NoError(t, st.CompleteRun("run-1", 10, 2, 70, `{"results":70}`))

	run, err = st.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.Equal(t, 10, run.DistrictsProcessed)
	require.Equal(t, 2, run.DistrictsSkipped)
	require.Equal(t, 70, run.Calculations)

	// Finalizing twice is an error, not a silent overwrite.
	err = st.CompleteRun("run-1", 10, 2, 70, "")
	require.Error(t, err)
}

func TestFailRun(t *testing.T) {
	st := newTestStore(t)

	_, err := st.StartRun("run-1", ModeTargetYear, "2023-24")
	require.NoError(t, err)
	require.NoError(t, st.FailRun("run-1", "interrupted"))

	run, err := st.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, RunStatusFailed, run.Status)
	require.Equal(t, "interrupted", run.FailureReason)
	require.Equal(t, "2023-24", run.TargetYear)
}

func TestGetLatestRun(t *testing.T) {
	st := newTestStore(t)

	_, err := st.StartRun("run-1", ModeBlended, "")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun("run-1", 1, 0, 7, ""))
	_, err = st.StartRun("run-2", ModeBlended, "")
	require.NoError(t, err)

	latest, err := st.GetLatestRun()
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.RunID)
}

func TestTransactionRollsBack(t *testing.T) {
	st := newTestStore(t)

	_, err := st.StartRun("run-1", ModeBlended, "")
	require.NoError(t, err)

	wantErr := sql.ErrConnDone
	err = st.Transaction(func(tx *sql.Tx) error {
		if err := st.InsertLCTResultTx(tx, &LCTResult{
			RunID:      "run-1",
			DistrictID: "0601234",
			Year:       "2023-24",
			StaffScope: "teachers_only",
		}); err != nil {
			return err
		}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	count, err := st.CountLCTResultsByRun("run-1")
	require.NoError(t, err)
	require.Equal(t, 0, count, "a failed transaction leaves nothing behind")
}

func TestResolvedProfileUpsert(t *testing.T) {
	st := newTestStore(t)

	p := &ResolvedStaffProfile{
		DistrictID:   "0601234",
		TargetYear:   "2023-24",
		TeachersOnly: f64(180),
		RunID:        "run-1",
	}
	require.NoError(t, st.UpsertResolvedProfile(p))

	p.TeachersOnly = f64(181)
	p.RunID = "run-2"
	require.NoError(t, st.UpsertResolvedProfile(p))

	got, err := st.GetResolvedProfile("0601234", "2023-24")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.InDelta(t, 181, got.TeachersOnly.Float64, 1e-9)
	require.Equal(t, "run-2", got.RunID, "exactly one live row per district-year")
}
