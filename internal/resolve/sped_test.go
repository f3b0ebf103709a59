package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edmetrics/lct/internal/store"
)

func addSpedEstimate(t *testing.T, st *store.Store, e *store.SpedEstimate) {
	t.Helper()
	require.NoError(t, st.UpsertSpedEstimate(e))
}

func TestResolveSpedStateActualWins(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  "2023-24",
		Method:        store.SpedMethodStateActual,
		SelfContained: f64(42),
		TeacherRatio:  f64(0.08),
		Confidence:    store.ConfidenceHigh,
	})
	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  store.FederalBaselineYear,
		Method:        store.SpedMethodFederalBaseline,
		SelfContained: f64(40),
		TeacherRatio:  f64(0.07),
		Confidence:    store.ConfidenceMedium,
	})

	sel, err := r.ResolveSped("0601234", "2023-24")
	require.NoError(t, err)
	require.NotNil(t, sel)
	require.Equal(t, store.SpedMethodStateActual, sel.Method)
	require.True(t, sel.HasRatio)
	require.InDelta(t, 0.08, sel.TeacherRatio, 1e-9)
}

func TestResolveSpedLowConfidenceSkipped(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  "2023-24",
		Method:        store.SpedMethodStateActual,
		SelfContained: f64(42),
		Confidence:    store.ConfidenceLow,
	})
	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  store.FederalBaselineYear,
		Method:        store.SpedMethodFederalBaseline,
		SelfContained: f64(40),
		TeacherRatio:  f64(0.07),
		Confidence:    store.ConfidenceMedium,
	})

	sel, err := r.ResolveSped("0601234", "2023-24")
	require.NoError(t, err)
	require.NotNil(t, sel)
	require.Equal(t, store.SpedMethodFederalBaseline, sel.Method)
}

func TestResolveSpedBaselineExemptFromSpanRejection(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	// 2017-18 against 2023-24 is a six-year span. A blended fact would be
	// rejected; the baseline is the designated substitute and survives.
	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  store.FederalBaselineYear,
		Method:        store.SpedMethodFederalBaseline,
		SelfContained: f64(40),
		TeacherRatio:  f64(0.07),
		Confidence:    store.ConfidenceMedium,
	})

	sel, err := r.ResolveSped("0601234", "2023-24")
	require.NoError(t, err)
	require.NotNil(t, sel)
	require.Equal(t, 6, sel.Span)
}

func TestResolveSpedNoneIsNotAnError(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	sel, err := r.ResolveSped("0609999", "2023-24")
	require.NoError(t, err)
	require.Nil(t, sel)
}

func TestResolveSpedStateActualBorrowsBaselineRatio(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  "2023-24",
		Method:        store.SpedMethodStateActual,
		SelfContained: f64(42),
		Confidence:    store.ConfidenceHigh,
	})
	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  store.FederalBaselineYear,
		Method:        store.SpedMethodFederalBaseline,
		SelfContained: f64(40),
		TeacherRatio:  f64(0.07),
		Confidence:    store.ConfidenceMedium,
	})

	sel, err := r.ResolveSped("0601234", "2023-24")
	require.NoError(t, err)
	require.Equal(t, store.SpedMethodStateActual, sel.Method)
	require.True(t, sel.HasRatio)
	require.InDelta(t, 0.07, sel.TeacherRatio, 1e-9)
}

func TestResolveSpedStaleStateActualRejected(t *testing.T) {
	st := newTestStore(t)
	r := New(st)

	addSpedEstimate(t, st, &store.SpedEstimate{
		DistrictID:    "0601234",
		EstimateYear:  "2018-19",
		Method:        store.SpedMethodStateActual,
		SelfContained: f64(42),
		TeacherRatio:  f64(0.08),
		Confidence:    store.ConfidenceHigh,
	})

	sel, err := r.ResolveSped("0601234", "2023-24")
	require.NoError(t, err)
	require.Nil(t, sel, "stale state actual with no baseline leaves no segmentation")
}
