package schoolyear

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		label   string
		want    Year
		wantErr bool
	}{
		{"2023-24", 2023, false},
		{"2017-18", 2017, false},
		{"1999-00", 1999, false},
		{"2099-00", 2099, false},
		{"2023-25", 0, true}, // suffix not adjacent year
		{"2023-2024", 0, true},
		{"23-24", 0, true},
		{"2023", 0, true},
		{"", 0, true},
		{"abcd-ef", 0, true},
		{"2023_24", 0, true},
		{"0023-24", 0, true}, // outside plausible range
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := Parse(tt.label)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %d, want error", tt.label, got)
				}
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("Parse(%q) error = %v, want ErrMalformed", tt.label, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for _, label := range []string{"2017-18", "2023-24", "1999-00"} {
		y, err := Parse(label)
		if err != nil {
			t.Fatalf("Parse(%q): %v", label, err)
		}
		if y.Label() != label {
			t.Errorf("Label() = %q, want %q", y.Label(), label)
		}
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		a, b    string
		want    int
		wantErr bool
	}{
		{"2023-24", "2023-24", 0, false},
		{"2023-24", "2022-23", 1, false},
		{"2023-24", "2026-27", 3, false},
		{"2023-24", "2027-28", 4, false},
		{"2017-18", "2023-24", 6, false},
		{"2023-24", "garbage", 0, true},
		{"garbage", "2023-24", 0, true},
	}

	for _, tt := range tests {
		got, err := Span(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Span(%q, %q) = %d, want error", tt.a, tt.b, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Span(%q, %q) unexpected error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Span(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// Span must be symmetric for every valid pair.
func TestSpanSymmetry(t *testing.T) {
	labels := []string{"2017-18", "2019-20", "2022-23", "2023-24", "2027-28"}
	for _, a := range labels {
		for _, b := range labels {
			ab, err := Span(a, b)
			if err != nil {
				t.Fatalf("Span(%q, %q): %v", a, b, err)
			}
			ba, err := Span(b, a)
			if err != nil {
				t.Fatalf("Span(%q, %q): %v", b, a, err)
			}
			if ab != ba {
				t.Errorf("Span(%q, %q) = %d but Span(%q, %q) = %d", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		span int
		want GapClass
	}{
		{0, GapExact},
		{1, GapExact},
		{2, GapWarn},
		{3, GapWarn},
		{4, GapReject},
		{10, GapReject},
	}

	for _, tt := range tests {
		if got := Classify(tt.span); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.span, got, tt.want)
		}
	}
}

func TestClassifyLabelsMalformed(t *testing.T) {
	span, class := ClassifyLabels("2023-24", "not-a-year")
	if class != GapReject {
		t.Errorf("malformed label classified %s, want reject", class)
	}
	if span != -1 {
		t.Errorf("malformed label span = %d, want -1", span)
	}
}
