// Package scope defines the closed set of staffing scopes and the
// aggregation that turns resolved staff-category counts into the ten scope
// totals. Each scope is defined in exactly one place, paired with the
// enrollment denominator it divides against.
package scope

// Scope identifies one named subset of staff categories.
type Scope int

const (
	TeachersOnly Scope = iota
	TeachersCore
	Instructional
	InstructionalPlusSupport
	All
	TeachersElementary
	TeachersSecondary
	CoreSped
	TeachersGenEd
	InstructionalSped
)

// EnrollmentType identifies the denominator a scope is paired with.
type EnrollmentType int

const (
	EnrollmentK12 EnrollmentType = iota
	EnrollmentElementary
	EnrollmentSecondary
	EnrollmentSpedSelfContained
	EnrollmentGenEd
)

// definition binds a scope to its export name and denominator at a single
// definition site, so a scope cannot exist without a pairing.
type definition struct {
	name       string
	enrollment EnrollmentType
	base       bool
	sped       bool
}

var definitions = map[Scope]definition{
	TeachersOnly:             {"teachers_only", EnrollmentK12, true, false},
	TeachersCore:             {"teachers_core", EnrollmentK12, true, false},
	Instructional:            {"instructional", EnrollmentK12, true, false},
	InstructionalPlusSupport: {"instructional_plus_support", EnrollmentK12, true, false},
	All:                      {"all", EnrollmentK12, true, false},
	TeachersElementary:       {"teachers_elementary", EnrollmentElementary, false, false},
	TeachersSecondary:        {"teachers_secondary", EnrollmentSecondary, false, false},
	CoreSped:                 {"core_sped", EnrollmentSpedSelfContained, false, true},
	TeachersGenEd:            {"teachers_gened", EnrollmentGenEd, false, true},
	InstructionalSped:        {"instructional_sped", EnrollmentSpedSelfContained, false, true},
}

func (s Scope) String() string {
	if def, ok := definitions[s]; ok {
		return def.name
	}
	return "unknown"
}

// Enrollment returns the denominator this scope is paired with.
func (s Scope) Enrollment() EnrollmentType {
	return definitions[s].enrollment
}

// IsBase reports whether the scope is one of the five K-12 base scopes
// that form the inclusion hierarchy.
func (s Scope) IsBase() bool {
	return definitions[s].base
}

// IsSped reports whether the scope depends on a SPED segmentation.
func (s Scope) IsSped() bool {
	return definitions[s].sped
}

// AllScopes lists every scope in hierarchy-then-pairing order. The order
// is fixed so exports and summaries are deterministic.
func AllScopes() []Scope {
	return []Scope{
		TeachersOnly, TeachersCore, Instructional, InstructionalPlusSupport, All,
		TeachersElementary, TeachersSecondary,
		CoreSped, TeachersGenEd, InstructionalSped,
	}
}

// BaseScopes lists the five scopes bound by the inclusion hierarchy.
func BaseScopes() []Scope {
	return []Scope{TeachersOnly, TeachersCore, Instructional, InstructionalPlusSupport, All}
}

func (t EnrollmentType) String() string {
	switch t {
	case EnrollmentK12:
		return "k12"
	case EnrollmentElementary:
		return "elementary_k5"
	case EnrollmentSecondary:
		return "secondary_6_12"
	case EnrollmentSpedSelfContained:
		return "sped_self_contained"
	case EnrollmentGenEd:
		return "gened"
	default:
		return "unknown"
	}
}
