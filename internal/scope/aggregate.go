package scope

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/edmetrics/lct/internal/store"
)

// FlagRatioCeiling marks a district whose teachers_only total equals its
// all-staff total, which only happens when the source reported a single
// undifferentiated staff number.
const FlagRatioCeiling = "ERR_RATIO_CEILING"

// Profile holds the ten computed scope totals for one district-year,
// built in one step from a resolved staff fact. SPED-dependent scopes are
// absent (HasSped false) when no SPED segmentation was resolvable.
type Profile struct {
	Totals  map[Scope]float64
	HasSped bool

	// MissingCategories names the staff categories the winning source
	// never reported. Those count as zero in the totals, but a reader of
	// the profile must be able to tell partial coverage from real zeros.
	MissingCategories []string

	Flags []string
}

// Total returns a scope's value. ok is false for SPED scopes when no
// segmentation was available.
func (p *Profile) Total(s Scope) (float64, bool) {
	if s.IsSped() && !p.HasSped {
		return 0, false
	}
	v, ok := p.Totals[s]
	return v, ok
}

// Notes renders the coverage caveats for resolution_notes.
func (p *Profile) Notes() string {
	var parts []string
	if len(p.MissingCategories) > 0 {
		parts = append(parts, fmt.Sprintf("categories not reported: %s", strings.Join(p.MissingCategories, ", ")))
	}
	if !p.HasSped {
		parts = append(parts, "no SPED segmentation; SPED scopes omitted")
	}
	parts = append(parts, p.Flags...)
	return strings.Join(parts, "; ")
}

// category pulls a nullable count, tracking absent categories by name.
type categoryReader struct {
	missing []string
}

func (c *categoryReader) get(v sql.NullFloat64, name string) float64 {
	if !v.Valid {
		c.missing = append(c.missing, name)
		return 0
	}
	return v.Float64
}

// Aggregate computes the ten scopes from a staff fact and an optional
// SPED teacher ratio (the 2017-18 federal share of core teachers in
// self-contained settings). Pre-K teachers are excluded from every scope.
func Aggregate(f *store.StaffFact, spedTeacherRatio float64, hasSped bool) *Profile {
	c := &categoryReader{}

	elementary := c.get(f.TeachersElementary, "teachers_elementary")
	kindergarten := c.get(f.TeachersKindergarten, "teachers_kindergarten")
	secondary := c.get(f.TeachersSecondary, "teachers_secondary")
	ungraded := c.get(f.TeachersUngraded, "teachers_ungraded")
	coordinators := c.get(f.InstructionalCoordinators, "instructional_coordinators")
	paraprofessionals := c.get(f.Paraprofessionals, "paraprofessionals")
	counselors := c.get(f.Counselors, "counselors")
	psychologists := c.get(f.Psychologists, "psychologists")
	studentSupport := c.get(f.StudentSupport, "student_support")
	administrators := c.get(f.Administrators, "administrators")
	librarians := c.get(f.Librarians, "librarians")
	otherStaff := c.get(f.OtherStaff, "other_staff")

	// Pre-K is read only so its absence is reported like any other
	// category; the count itself never enters a scope.
	c.get(f.TeachersPreK, "teachers_prek")

	teachersOnly := elementary + kindergarten + secondary
	teachersCore := teachersOnly + ungraded
	instructional := teachersCore + coordinators + paraprofessionals
	plusSupport := instructional + counselors + psychologists + studentSupport
	allStaff := plusSupport + administrators + librarians + otherStaff

	totals := map[Scope]float64{
		TeachersOnly:             teachersOnly,
		TeachersCore:             teachersCore,
		Instructional:            instructional,
		InstructionalPlusSupport: plusSupport,
		All:                      allStaff,
		TeachersElementary:       elementary + kindergarten,
		TeachersSecondary:        secondary,
	}

	p := &Profile{
		Totals:  totals,
		HasSped: hasSped,
	}

	if hasSped {
		spedTeachers := teachersCore * spedTeacherRatio
		totals[CoreSped] = spedTeachers
		totals[TeachersGenEd] = teachersCore - spedTeachers
		totals[InstructionalSped] = spedTeachers + paraprofessionals*spedTeacherRatio
	}

	sort.Strings(c.missing)
	p.MissingCategories = c.missing

	if allStaff > 0 && teachersOnly == allStaff {
		p.Flags = append(p.Flags, FlagRatioCeiling)
	}

	return p
}

// CheckHierarchy verifies the base-scope inclusion invariant
// teachers_only <= teachers_core <= instructional <=
// instructional_plus_support <= all. A violation is a data-quality signal,
// not an error; callers flag it.
func CheckHierarchy(p *Profile) bool {
	base := BaseScopes()
	for i := 1; i < len(base); i++ {
		if p.Totals[base[i-1]] > p.Totals[base[i]] {
			return false
		}
	}
	return true
}
