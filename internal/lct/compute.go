// Package lct computes Learning Connection Time: the daily instructional
// minutes one student shares with the staff of a given scope,
// minutes * staff / enrollment. The runner in this package drives the
// whole per-district pipeline and writes results inside one transaction
// per district.
package lct

import (
	"github.com/edmetrics/lct/internal/scope"
)

// Calculation bounds and safeguard thresholds.
const (
	// MaxLCT is one school day. No emitted value exceeds it; SPED scopes
	// are capped to it, base scopes above it simply fall outside the
	// valid window.
	MaxLCT = 360

	LowLCTThreshold  = 5
	HighLCTThreshold = 120

	// MaxStaffStudentRatio is the plausibility ceiling for base scopes.
	// One staffer per two students is already beyond any real district.
	MaxStaffStudentRatio = 0.5

	// MinStableEnrollment is the K-12 count below which ratios are too
	// volatile to trust.
	MinStableEnrollment = 50
)

// Safeguard flags attached to result notes. ERR flags mark implausible
// inputs, WARN flags mark suspicious outputs. Neither ever removes a row
// from the export.
const (
	FlagFlatStaff     = "ERR_FLAT_STAFF"
	FlagImpossibleSSR = "ERR_IMPOSSIBLE_SSR"
	FlagVolatile      = "ERR_VOLATILE"
	FlagLCTLow        = "WARN_LCT_LOW"
	FlagLCTHigh       = "WARN_LCT_HIGH"
	FlagSpedRatioCap  = "WARN_SPED_RATIO_CAP"
)

// Value is one computed LCT for a (district, scope) pair.
type Value struct {
	LCT    float64
	Raw    float64
	Capped bool

	// Valid marks membership in the summary-statistics subset
	// (0 < LCT <= 360). Invalid rows still appear in the export.
	Valid bool

	Flags []string
}

// Compute evaluates one scope. It returns nil when the value is undefined
// (no staff or no enrollment); undefined is not zero and not an error.
func Compute(minutes, staff, enrollment float64, s scope.Scope) *Value {
	if staff <= 0 || enrollment <= 0 {
		return nil
	}

	raw := minutes * staff / enrollment
	v := &Value{LCT: raw, Raw: raw}

	if s.IsSped() && raw > MaxLCT {
		v.LCT = MaxLCT
		v.Capped = true
		v.Flags = append(v.Flags, FlagSpedRatioCap)
	}

	if s.IsBase() && staff/enrollment > MaxStaffStudentRatio {
		v.Flags = append(v.Flags, FlagImpossibleSSR)
	}
	if v.LCT < LowLCTThreshold {
		v.Flags = append(v.Flags, FlagLCTLow)
	}
	if s == scope.TeachersOnly && v.LCT > HighLCTThreshold {
		v.Flags = append(v.Flags, FlagLCTHigh)
	}

	v.Valid = v.LCT > 0 && v.LCT <= MaxLCT
	return v
}

// FlatStaff reports whether all five base scopes carry the same total,
// the signature of a source that never broke staff down by category.
func FlatStaff(p *scope.Profile) bool {
	base := scope.BaseScopes()
	first, ok := p.Total(base[0])
	if !ok {
		return false
	}
	for _, s := range base[1:] {
		v, ok := p.Total(s)
		if !ok || v != first {
			return false
		}
	}
	return true
}
