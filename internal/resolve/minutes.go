package resolve

import (
	"fmt"

	"github.com/edmetrics/lct/internal/schoolyear"
	"github.com/edmetrics/lct/internal/store"
)

// DefaultDailyMinutes is the terminal fallback when neither a bell
// schedule nor a statutory requirement exists: a 6-hour day.
const DefaultDailyMinutes = 360

// Minutes sources, in precedence order. Cross-level fallbacks carry the
// substituted level in the source label.
const (
	SourceBellSchedule     = "bell_schedule"
	SourceStateRequirement = "state_requirement"
	SourceDefaultMinutes   = "default"
)

// fallbackLevels is the substitution order when the requested grade level
// has no enriched schedule. Longer school days sort first so the
// substitute errs toward secondary norms.
var fallbackLevels = []string{
	store.GradeLevelHigh,
	store.GradeLevelMiddle,
	store.GradeLevelElementary,
}

// MinutesSelection is the outcome of the instructional-minutes chain.
type MinutesSelection struct {
	Minutes float64
	Source  string
	Year    string
	Span    int
	Flags   []string

	Rejections []string
}

// ResolveMinutes selects daily instructional minutes for a district and
// grade level:
//
//	(a) an enriched bell schedule for the requested grade level
//	(b) a bell schedule for another grade level, high > middle > elementary
//	(c) the state statutory requirement for the grade level
//	(d) a default 360-minute day
//
// Bell-schedule candidates are year-validated like any blended fact. The
// chain never fails: every district gets minutes from some rung.
func (r *Resolver) ResolveMinutes(districtID, state, gradeLevel, targetYear string) (*MinutesSelection, error) {
	schedules, err := r.store.GetBellSchedules(districtID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bell schedules: %w", err)
	}

	var rejections []string

	if sel := pickSchedule(schedules, gradeLevel, targetYear, SourceBellSchedule, &rejections); sel != nil {
		sel.Rejections = rejections
		return sel, nil
	}

	for _, level := range fallbackLevels {
		if level == gradeLevel {
			continue
		}
		source := SourceBellSchedule + "_" + level
		if sel := pickSchedule(schedules, level, targetYear, source, &rejections); sel != nil {
			sel.Rejections = rejections
			return sel, nil
		}
	}

	req, err := r.store.GetStateRequirement(state)
	if err != nil {
		return nil, fmt.Errorf("failed to load state requirement: %w", err)
	}
	if req != nil {
		if minutes, ok := req.MinutesFor(gradeLevel); ok {
			return &MinutesSelection{
				Minutes:    minutes,
				Source:     SourceStateRequirement,
				Rejections: rejections,
			}, nil
		}
	}

	return &MinutesSelection{
		Minutes:    DefaultDailyMinutes,
		Source:     SourceDefaultMinutes,
		Rejections: rejections,
	}, nil
}

// pickSchedule scans schedules (ordered year desc) for the newest
// acceptable entry at the given grade level.
func pickSchedule(schedules []*store.BellSchedule, gradeLevel, targetYear, source string, rejections *[]string) *MinutesSelection {
	for _, s := range schedules {
		if s.GradeLevel != gradeLevel {
			continue
		}

		span, class := schoolyear.ClassifyLabels(s.Year, targetYear)
		switch class {
		case schoolyear.GapReject:
			if span < 0 {
				*rejections = append(*rejections, fmt.Sprintf("bell schedule %s %s: malformed year, rejected", gradeLevel, s.Year))
			} else {
				*rejections = append(*rejections, fmt.Sprintf("bell schedule %s %s: %s (span %d > %d)", gradeLevel, s.Year, FlagSpanExceeded, span, schoolyear.MaxBlendSpan))
			}
			continue
		case schoolyear.GapWarn:
			return &MinutesSelection{
				Minutes: s.InstructionalMinutes,
				Source:  source,
				Year:    s.Year,
				Span:    span,
				Flags:   []string{FlagYearGap},
			}
		default:
			return &MinutesSelection{
				Minutes: s.InstructionalMinutes,
				Source:  source,
				Year:    s.Year,
				Span:    span,
			}
		}
	}
	return nil
}

// Describe renders the selection metadata for resolution_notes.
func (s *MinutesSelection) Describe() string {
	year := s.Year
	if year == "" {
		year = "statutory"
		if s.Source == SourceDefaultMinutes {
			year = "fallback"
		}
	}
	return describeSelection("minutes", s.Source, year, fmt.Sprintf("%.0f/day", s.Minutes), s.Span, s.Flags, s.Rejections)
}
