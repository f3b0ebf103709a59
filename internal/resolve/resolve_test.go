package resolve

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
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

func addStaffFact(t *testing.T, st *store.Store, district, year, source string, teachers float64) {
	t.Helper()
	err := st.InsertStaffFact(&store.StaffFact{
		DistrictID:         district,
		SourceYear:         year,
		SourceName:         source,
		TeachersElementary: f64(teachers),
	})
	require.NoError(t, err)
}

func addEnrollmentFact(t *testing.T, st *store.Store, district, year, source string, k12 float64) {
	t.Helper()
	err := st.InsertEnrollmentFact(&store.EnrollmentFact{
		DistrictID:   district,
		SourceYear:   year,
		SourceName:   source,
		Kindergarten: f64(k12),
	})
	require.NoError(t, err)
}

func TestResolveStaffingFederalExactYearWins(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2023-24", store.SourceFederal, 100)
	addStaffFact(t, st, "0601234", "2023-24", "sea_ca", 105)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, RuleFederalTargetYear, sel.Rule)
	require.Equal(t, store.SourceFederal, sel.Source)
	require.Equal(t, 0, sel.Span)
	require.Empty(t, sel.Flags)
}

func TestResolveStaffingStateExactBeatsStaleFederal(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	// Federal is a year behind; the state exact-year fact outranks it.
	addStaffFact(t, st, "0601234", "2022-23", store.SourceFederal, 100)
	addStaffFact(t, st, "0601234", "2023-24", "sea_ca", 105)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, RuleStateTargetYear, sel.Rule)
	require.Equal(t, "sea_ca", sel.Source)
	require.InDelta(t, 105, sel.Fact.TeachersElementary.Float64, 1e-9)
}

func TestResolveStaffingBlendsWithinWindow(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2022-23", store.SourceFederal, 100)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, RuleFederalAnyYear, sel.Rule)
	require.Equal(t, 1, sel.Span)
	require.Empty(t, sel.Flags, "span 1 is silent")
}

func TestResolveStaffingWarnsOnWideGap(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2023-24", store.SourceFederal, 100)

	sel, err := r.ResolveStaffing("0601234", "2026-27")
	require.NoError(t, err)
	require.Equal(t, 3, sel.Span)
	require.Contains(t, sel.Flags, FlagYearGap)
}

func TestResolveStaffingRejectsBeyondWindow(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2023-24", store.SourceFederal, 100)

	_, err := r.ResolveStaffing("0601234", "2027-28")
	require.ErrorIs(t, err, util.ErrNoCandidates)
}

func TestResolveStaffingFallsThroughToState(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	// Federal is outside the window; state within it takes over.
	addStaffFact(t, st, "0601234", "2019-20", store.SourceFederal, 90)
	addStaffFact(t, st, "0601234", "2022-23", "sea_tx", 95)
	addStaffFact(t, st, "0601234", "2021-22", "sea_tx", 88)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, RuleStateAnyYear, sel.Rule)
	require.Equal(t, "2022-23", sel.Year, "newest acceptable state fact wins")
	require.NotEmpty(t, sel.Rejections)
}

func TestResolveStaffingOldestFederalStandardizes(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2021-22", store.SourceFederal, 80)
	addStaffFact(t, st, "0601234", "2022-23", store.SourceFederal, 90)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, "2021-22", sel.Year)
	require.Equal(t, 2, sel.Span)
	require.Contains(t, sel.Flags, FlagYearGap)
}

func TestResolveStaffingMalformedYearRejected(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2023", store.SourceFederal, 100)
	addStaffFact(t, st, "0601234", "2022-23", "sea_ca", 95)

	sel, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, "sea_ca", sel.Source)
	require.NotEmpty(t, sel.Rejections)
}

func TestResolveStaffingDeterministic(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addStaffFact(t, st, "0601234", "2022-23", "sea_ca", 90)
	addStaffFact(t, st, "0601234", "2022-23", "sea_ca_supplement", 91)

	first, err := r.ResolveStaffing("0601234", "2023-24")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.ResolveStaffing("0601234", "2023-24")
		require.NoError(t, err)
		require.Equal(t, first.Source, again.Source)
		require.Equal(t, first.Year, again.Year)
	}
}

func TestResolveEnrollmentTargetYearModeIsAnchored(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addEnrollmentFact(t, st, "0601234", "2022-23", store.SourceFederal, 500)

	_, err := r.ResolveEnrollment("0601234", "2023-24", store.ModeTargetYear)
	require.ErrorIs(t, err, util.ErrNoCandidates, "target-year mode never blends enrollment")

	sel, err := r.ResolveEnrollment("0601234", "2023-24", store.ModeBlended)
	require.NoError(t, err)
	require.Equal(t, 1, sel.Span)
}

func TestAnchorYear(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addEnrollmentFact(t, st, "0601234", "2021-22", store.SourceFederal, 480)
	addEnrollmentFact(t, st, "0601234", "2022-23", "sea_ca", 500)
	addEnrollmentFact(t, st, "0601234", "bogus", "sea_ca", 510)

	anchor, err := r.AnchorYear("0601234", store.ModeBlended, "2023-24")
	require.NoError(t, err)
	require.Equal(t, "2022-23", anchor, "most recent well-formed enrollment year")

	anchor, err = r.AnchorYear("0601234", store.ModeTargetYear, "2023-24")
	require.NoError(t, err)
	require.Equal(t, "2023-24", anchor)
}

func TestAnchorYearNoUsableEnrollment(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	_, err := r.AnchorYear("0609999", store.ModeBlended, "2023-24")
	require.True(t, errors.Is(err, util.ErrNoCandidates))
}
