// Package resolve applies the source-precedence rules: for each district
// and target year it selects exactly one authoritative source for staffing,
// enrollment, instructional minutes, and the SPED split, recording which
// rule fired, the year span when facts were blended, and every flag raised.
// Selection metadata is mandatory output; auditors depend on it.
package resolve

import (
	"fmt"
	"strings"

	"github.com/edmetrics/lct/internal/schoolyear"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

// Flags raised during resolution.
const (
	FlagYearGap      = "WARN_YEAR_GAP"
	FlagSpanExceeded = "ERR_SPAN_EXCEEDED"
)

// Rules for staffing/enrollment selection, in precedence order.
const (
	RuleFederalTargetYear = "federal_target_year"
	RuleStateTargetYear   = "state_target_year"
	RuleFederalAnyYear    = "federal_any_year"
	RuleStateAnyYear      = "state_any_year"
)

// Resolver selects authoritative facts from the source registry. It holds
// only a store handle; every method is a pure function of the registry.
type Resolver struct {
	store *store.Store
}

// New creates a Resolver over the given store.
func New(st *store.Store) *Resolver {
	return &Resolver{store: st}
}

// StaffSelection is the outcome of staffing precedence for one district.
type StaffSelection struct {
	Fact   *store.StaffFact
	Source string
	Year   string
	Span   int
	Rule   string
	Flags  []string

	// Rejections describes candidates disqualified on the way to the
	// winner, for resolution_notes.
	Rejections []string
}

// EnrollmentSelection is the outcome of enrollment precedence.
type EnrollmentSelection struct {
	Fact   *store.EnrollmentFact
	Source string
	Year   string
	Span   int
	Rule   string
	Flags  []string

	Rejections []string
}

// candidate is the source/year view of a fact used by the shared rule
// chain; index points back into the caller's fact slice.
type candidate struct {
	source string
	year   string
	index  int
}

type selection struct {
	index int
	rule  string
	span  int
	flags []string
}

// selectCandidate runs the staffing/enrollment precedence chain over
// candidates already ordered (year desc, source asc):
//
//	(a) federal fact at the target year
//	(b) state fact at the target year
//	(c) federal fact of any acceptable year, oldest first
//	(d) state fact of any acceptable year, newest first
//
// Every blending step runs the temporal validator; a span above the
// blending window disqualifies the candidate and the chain falls through.
// The same inputs always produce the same winner: candidate order is total
// and each rule scans it deterministically.
func selectCandidate(cands []candidate, targetYear string) (selection, []string, bool) {
	var rejections []string

	// (a)/(b): exact target-year match, federal before state.
	for _, federal := range []bool{true, false} {
		for _, c := range cands {
			if store.IsFederalSource(c.source) != federal {
				continue
			}
			if c.year == targetYear {
				rule := RuleFederalTargetYear
				if !federal {
					rule = RuleStateTargetYear
				}
				return selection{index: c.index, rule: rule, span: 0}, rejections, true
			}
		}
	}

	// (c): federal of any year. Oldest acceptable wins, standardizing
	// districts on the same federal vintage where possible.
	for i := len(cands) - 1; i >= 0; i-- {
		c := cands[i]
		if !store.IsFederalSource(c.source) {
			continue
		}
		sel, rejection, ok := blendCandidate(c, targetYear, RuleFederalAnyYear)
		if !ok {
			rejections = append(rejections, rejection)
			continue
		}
		return sel, rejections, true
	}

	// (d): state of any year, newest acceptable wins.
	for _, c := range cands {
		if store.IsFederalSource(c.source) {
			continue
		}
		sel, rejection, ok := blendCandidate(c, targetYear, RuleStateAnyYear)
		if !ok {
			rejections = append(rejections, rejection)
			continue
		}
		return sel, rejections, true
	}

	return selection{}, rejections, false
}

// blendCandidate validates a cross-year candidate against the blending
// window. Malformed years classify as rejected, never as a panic.
func blendCandidate(c candidate, targetYear, rule string) (selection, string, bool) {
	span, class := schoolyear.ClassifyLabels(c.year, targetYear)
	switch class {
	case schoolyear.GapReject:
		if span < 0 {
			return selection{}, fmt.Sprintf("%s %s: malformed year, rejected", c.source, c.year), false
		}
		return selection{}, fmt.Sprintf("%s %s: %s (span %d > %d)", c.source, c.year, FlagSpanExceeded, span, schoolyear.MaxBlendSpan), false
	case schoolyear.GapWarn:
		return selection{index: c.index, rule: rule, span: span, flags: []string{FlagYearGap}}, "", true
	default:
		return selection{index: c.index, rule: rule, span: span}, "", true
	}
}

// ResolveStaffing selects the authoritative staff fact for a district and
// target year. ok is false when no candidate survives; the district is
// skipped for staffing-dependent output, never the whole run.
func (r *Resolver) ResolveStaffing(districtID, targetYear string) (*StaffSelection, error) {
	facts, err := r.store.GetStaffFacts(districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load staff facts: %w", err)
	}

	cands := make([]candidate, len(facts))
	for i, f := range facts {
		cands[i] = candidate{source: f.SourceName, year: f.SourceYear, index: i}
	}

	sel, rejections, ok := selectCandidate(cands, targetYear)
	if !ok {
		return nil, fmt.Errorf("%w: staffing for %s at %s", util.ErrNoCandidates, districtID, targetYear)
	}

	fact := facts[sel.index]
	return &StaffSelection{
		Fact:       fact,
		Source:     fact.SourceName,
		Year:       fact.SourceYear,
		Span:       sel.span,
		Rule:       sel.rule,
		Flags:      sel.flags,
		Rejections: rejections,
	}, nil
}

// ResolveEnrollment selects the authoritative enrollment fact. In
// TARGET_YEAR mode enrollment is anchored: only exact-target-year facts
// qualify (rules a/b); BLENDED mode runs the full chain.
func (r *Resolver) ResolveEnrollment(districtID, targetYear, mode string) (*EnrollmentSelection, error) {
	facts, err := r.store.GetEnrollmentFacts(districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment facts: %w", err)
	}

	cands := make([]candidate, 0, len(facts))
	for i, f := range facts {
		if mode == store.ModeTargetYear && f.SourceYear != targetYear {
			continue
		}
		cands = append(cands, candidate{source: f.SourceName, year: f.SourceYear, index: i})
	}

	sel, rejections, ok := selectCandidate(cands, targetYear)
	if !ok {
		return nil, fmt.Errorf("%w: enrollment for %s at %s", util.ErrNoCandidates, districtID, targetYear)
	}

	fact := facts[sel.index]
	return &EnrollmentSelection{
		Fact:       fact,
		Source:     fact.SourceName,
		Year:       fact.SourceYear,
		Span:       sel.span,
		Rule:       sel.rule,
		Flags:      sel.flags,
		Rejections: rejections,
	}, nil
}

// AnchorYear determines the per-district anchor for BLENDED mode: the most
// recent enrollment year with a well-formed label. TARGET_YEAR mode always
// anchors on the requested year.
func (r *Resolver) AnchorYear(districtID, mode, targetYear string) (string, error) {
	if mode == store.ModeTargetYear {
		return targetYear, nil
	}

	facts, err := r.store.GetEnrollmentFacts(districtID)
	if err != nil {
		return "", fmt.Errorf("failed to load enrollment facts: %w", err)
	}

	best := ""
	bestYear := schoolyear.Year(0)
	for _, f := range facts {
		y, err := schoolyear.Parse(f.SourceYear)
		if err != nil {
			continue
		}
		if best == "" || y > bestYear {
			best = f.SourceYear
			bestYear = y
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: no usable enrollment year for %s", util.ErrNoCandidates, districtID)
	}
	return best, nil
}

// Describe renders the selection metadata for resolution_notes.
func (s *StaffSelection) Describe() string {
	return describeSelection("staff", s.Source, s.Year, s.Rule, s.Span, s.Flags, s.Rejections)
}

// Describe renders the selection metadata for resolution_notes.
func (s *EnrollmentSelection) Describe() string {
	return describeSelection("enrollment", s.Source, s.Year, s.Rule, s.Span, s.Flags, s.Rejections)
}

func describeSelection(kind, source, year, rule string, span int, flags, rejections []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s via %s", kind, source, year, rule)
	if span > 0 {
		fmt.Fprintf(&b, " (span %d)", span)
	}
	for _, f := range flags {
		b.WriteString(" " + f)
	}
	for _, rej := range rejections {
		b.WriteString("; rejected " + rej)
	}
	return b.String()
}
