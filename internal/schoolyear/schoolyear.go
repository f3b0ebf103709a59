// Package schoolyear parses school-year labels ("2023-24") and classifies
// the gap between two labeled years for blending decisions.
package schoolyear

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed indicates a school-year label that cannot be parsed.
// Callers treat a malformed label as an infinite span (always rejected).
var ErrMalformed = errors.New("malformed school year label")

// MaxBlendSpan is the widest year gap across which two facts may be blended.
const MaxBlendSpan = 3

// GapClass classifies the span between two school years.
type GapClass int

const (
	// GapExact covers spans of 0 or 1 year: same or adjacent year, no flag.
	GapExact GapClass = iota
	// GapWarn covers spans of 2-3 years: usable, flagged WARN_YEAR_GAP.
	GapWarn
	// GapReject covers spans above 3 years: the candidate must be dropped.
	GapReject
)

func (c GapClass) String() string {
	switch c {
	case GapExact:
		return "exact"
	case GapWarn:
		return "warn"
	case GapReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Year is the starting calendar year of a school year
// ("2023-24" has Year 2023).
type Year int

// Parse parses a label of the form "YYYY-YY" where the second part is the
// last two digits of the following calendar year. Anything else returns
// ErrMalformed; parsing never panics on bad input.
func Parse(label string) (Year, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, label)
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, label)
	}
	suffix, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, label)
	}

	if start < 1900 || start > 2999 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, label)
	}

	// Suffix must be the following calendar year modulo 100.
	if (start+1)%100 != suffix {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, label)
	}

	return Year(start), nil
}

// Label renders a Year back into its "YYYY-YY" form.
func (y Year) Label() string {
	return fmt.Sprintf("%04d-%02d", int(y), (int(y)+1)%100)
}

// Next returns the following school year.
func (y Year) Next() Year { return y + 1 }

// Prev returns the preceding school year.
func (y Year) Prev() Year { return y - 1 }

// Span returns the absolute year gap between two labels. A malformed label
// on either side returns ErrMalformed; callers fall back to rejection.
func Span(a, b string) (int, error) {
	ya, err := Parse(a)
	if err != nil {
		return 0, err
	}
	yb, err := Parse(b)
	if err != nil {
		return 0, err
	}

	span := int(ya) - int(yb)
	if span < 0 {
		span = -span
	}
	return span, nil
}

// Classify maps a span onto the blending window.
func Classify(span int) GapClass {
	switch {
	case span <= 1:
		return GapExact
	case span <= MaxBlendSpan:
		return GapWarn
	default:
		return GapReject
	}
}

// ClassifyLabels computes the span between two labels and classifies it.
// Malformed labels classify as GapReject with a span of -1.
func ClassifyLabels(a, b string) (int, GapClass) {
	span, err := Span(a, b)
	if err != nil {
		return -1, GapReject
	}
	return span, Classify(span)
}

// Valid reports whether a label parses cleanly.
func Valid(label string) bool {
	_, err := Parse(label)
	return err == nil
}
