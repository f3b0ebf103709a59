package resolve

import (
	"fmt"

	"github.com/edmetrics/lct/internal/schoolyear"
	"github.com/edmetrics/lct/internal/store"
)

// SpedSelection is the outcome of the SPED segmentation chain. A nil
// selection (with a nil error) means no usable segmentation exists and
// SPED-dependent scopes are omitted for the district.
type SpedSelection struct {
	Estimate     *store.SpedEstimate
	Method       string
	Year         string
	Span         int
	TeacherRatio float64
	HasRatio     bool
	Flags        []string
	Notes        string
}

// ResolveSped selects the SPED segmentation for a district:
//
//	(a) a state-actual estimate at the target year, confidence above low
//	(b) a federal-baseline estimate, confidence above low
//	(c) none; SPED scopes are omitted, the district is not skipped
//
// State actuals are year-validated like any blended fact. Baseline rows
// are exempt from span rejection: their vintage is fixed at 2017-18 and
// substituting it is exactly what rule (b) is for. The span is still
// recorded so the output discloses how stale the split is.
func (r *Resolver) ResolveSped(districtID, targetYear string) (*SpedSelection, error) {
	estimates, err := r.store.GetSpedEstimates(districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load SPED estimates: %w", err)
	}

	// (a): state actuals, newest acceptable first. Estimates arrive
	// ordered method desc then year desc, so state_actual rows lead.
	for _, e := range estimates {
		if e.Method != store.SpedMethodStateActual || e.Confidence == store.ConfidenceLow {
			continue
		}
		span, class := schoolyear.ClassifyLabels(e.EstimateYear, targetYear)
		if class == schoolyear.GapReject {
			continue
		}
		sel := &SpedSelection{
			Estimate: e,
			Method:   e.Method,
			Year:     e.EstimateYear,
			Span:     span,
			Notes:    e.Notes,
		}
		if class == schoolyear.GapWarn {
			sel.Flags = append(sel.Flags, FlagYearGap)
		}
		r.attachTeacherRatio(sel, e, estimates)
		return sel, nil
	}

	// (b): federal baseline.
	for _, e := range estimates {
		if e.Method != store.SpedMethodFederalBaseline || e.Confidence == store.ConfidenceLow {
			continue
		}
		span, _ := schoolyear.ClassifyLabels(e.EstimateYear, targetYear)
		sel := &SpedSelection{
			Estimate: e,
			Method:   e.Method,
			Year:     e.EstimateYear,
			Span:     span,
			Notes:    e.Notes,
		}
		r.attachTeacherRatio(sel, e, estimates)
		return sel, nil
	}

	// (c): no segmentation.
	return nil, nil
}

// attachTeacherRatio fills the teacher split ratio. The ratio is always
// the fixed federal vintage, so a state-actual winner without its own
// ratio borrows it from any baseline row for the district.
func (r *Resolver) attachTeacherRatio(sel *SpedSelection, winner *store.SpedEstimate, all []*store.SpedEstimate) {
	if winner.TeacherRatio.Valid {
		sel.TeacherRatio = winner.TeacherRatio.Float64
		sel.HasRatio = true
		return
	}
	for _, e := range all {
		if e.Method == store.SpedMethodFederalBaseline && e.TeacherRatio.Valid {
			sel.TeacherRatio = e.TeacherRatio.Float64
			sel.HasRatio = true
			return
		}
	}
}

// Describe renders the selection metadata for resolution_notes.
func (s *SpedSelection) Describe() string {
	if s == nil {
		return "sped: none"
	}
	out := describeSelection("sped", s.Method, s.Year, s.Estimate.Confidence, s.Span, s.Flags, nil)
	if !s.HasRatio {
		out += "; no teacher ratio, split scopes limited"
	}
	return out
}
