package loader

import (
	"os"
	"path/filepath"
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

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDistricts(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,name,state
0601234,Alameda Unified,CA
0605678,Berkeley Unified,CA
,No Id District,CA
`)

	result, err := LoadDistricts(st, path)
	require.NoError(t, err)
	require.Equal(t, 3, result.RowsRead)
	require.Equal(t, 2, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped, "a bad row skips, the file still loads")

	count, err := st.CountDistricts()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestLoadStaffFactsFederal(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,source_year,source_name,teachers_elementary,teachers_secondary,administrators
0601234,2023-24,nces_ccd,100,80,12
`)

	result, err := LoadStaffFacts(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)

	facts, err := st.GetStaffFacts("0601234")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.InDelta(t, 100, facts[0].TeachersElementary.Float64, 1e-9)
	require.False(t, facts[0].Counselors.Valid, "absent column stays NULL")
}

func TestLoadStaffFactsStateViaCrosswalk(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertCrosswalkEntry(&store.CrosswalkEntry{
		State:           "TX",
		StateDistrictID: "057905",
		NCESID:          "4823640",
		DistrictName:    "Highland Park ISD",
	}))

	path := writeCSV(t, `state,state_district_id,district_name,source_year,source_name,teachers_elementary
TX,057905,Highland Park ISD,2023-24,sea_tx,55
TX,999999,Unknown District,2023-24,sea_tx,10
`)

	result, err := LoadStaffFacts(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped, "unmapped district skips the row")

	facts, err := st.GetStaffFacts("4823640")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "sea_tx", facts[0].SourceName)
}

func TestLoadStaffFactsRejectsNegativeCounts(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,source_year,source_name,teachers_elementary,teachers_secondary
0601234,2023-24,nces_ccd,100,-40
0605678,2023-24,nces_ccd,55,45
`)

	result, err := LoadStaffFacts(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped, "a negative count is malformed, the row skips")
	require.Contains(t, result.Errors[0].Error(), "teachers_secondary")

	facts, err := st.GetStaffFacts("0601234")
	require.NoError(t, err)
	require.Empty(t, facts, "nothing from the bad row is persisted")
}

func TestLoadEnrollmentFactsRejectsNegativeCounts(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,source_year,source_name,kindergarten,grade_01
0601234,2023-24,nces_ccd,-5,110
`)

	result, err := LoadEnrollmentFacts(st, path)
	require.NoError(t, err)
	require.Equal(t, 0, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped)
}

func TestLoadEnrollmentFacts(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,source_year,source_name,kindergarten,grade_01,grade_06,prek
0601234,2023-24,nces_ccd,100,110,120,40
`)

	result, err := LoadEnrollmentFacts(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)

	facts, err := st.GetEnrollmentFacts("0601234")
	require.NoError(t, err)
	require.Len(t, facts, 1)

	elem, ok := facts[0].Elementary()
	require.True(t, ok)
	require.InDelta(t, 210, elem, 1e-9)
	k12, ok := facts[0].TotalK12()
	require.True(t, ok)
	require.InDelta(t, 330, k12, 1e-9, "Pre-K never enters K-12")
}

func TestLoadSpedEstimates(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,estimate_year,method,self_contained,teacher_ratio,confidence
0601234,2023-24,state_actual,42,0.08,high
0601234,2017-18,federal_baseline,40,0.07,
0601234,2023-24,guesswork,10,0.5,low
`)

	result, err := LoadSpedEstimates(st, path)
	require.NoError(t, err)
	require.Equal(t, 2, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped, "unknown method rejected")

	estimates, err := st.GetSpedEstimates("0601234")
	require.NoError(t, err)
	require.Len(t, estimates, 2)
	require.Equal(t, store.ConfidenceMedium, estimates[1].Confidence, "empty confidence defaults to medium")
}

func TestLoadBellSchedules(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `nces_id,year,grade_level,instructional_minutes,confidence
0601234,2023-24,high,410,high
0601234,2023-24,kindergarten,300,low
0601234,2023-24,middle,,high
`)

	result, err := LoadBellSchedules(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)
	require.Equal(t, 2, result.RowsSkipped, "bad grade level and missing minutes both skip")

	schedules, err := st.GetBellSchedules("0601234")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	require.InDelta(t, 410, schedules[0].InstructionalMinutes, 1e-9)
}

func TestLoadStateRequirements(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `state,elementary_minutes,high_minutes,default_minutes
CA,280,360,
WY,,,330
`)

	result, err := LoadStateRequirements(st, path)
	require.NoError(t, err)
	require.Equal(t, 2, result.RowsLoaded)

	req, err := st.GetStateRequirement("CA")
	require.NoError(t, err)
	require.NotNil(t, req)

	minutes, ok := req.MinutesFor(store.GradeLevelHigh)
	require.True(t, ok)
	require.InDelta(t, 360, minutes, 1e-9)

	_, ok = req.MinutesFor(store.GradeLevelMiddle)
	require.False(t, ok, "no middle band and no default")

	req, err = st.GetStateRequirement("WY")
	require.NoError(t, err)
	minutes, ok = req.MinutesFor(store.GradeLevelMiddle)
	require.True(t, ok)
	require.InDelta(t, 330, minutes, 1e-9)
}

func TestLoadCrosswalk(t *testing.T) {
	st := newTestStore(t)

	path := writeCSV(t, `state,state_district_id,nces_id,district_name
TX,057905,4823640,Highland Park ISD
OH,,3904000,Missing State Id
`)

	result, err := LoadCrosswalk(st, path)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowsLoaded)
	require.Equal(t, 1, result.RowsSkipped)

	entry, err := st.GetCrosswalkEntry("TX", "057905")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "4823640", entry.NCESID)
}
