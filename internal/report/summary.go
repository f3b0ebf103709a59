package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/edmetrics/lct/internal/store"
)

// ScopeStats holds summary statistics for one staffing scope across the
// run's valid results.
type ScopeStats struct {
	Scope   string  `json:"scope"`
	Count   int     `json:"count"`
	Invalid int     `json:"invalid"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Outlier is a flagged result surfaced for review.
type Outlier struct {
	DistrictID string  `json:"district_id"`
	Scope      string  `json:"scope"`
	LCT        float64 `json:"lct"`
	Flags      string  `json:"flags"`
}

// QASummary is the per-run quality report stored on the run ledger row
// and rendered into the Markdown report.
type QASummary struct {
	RunID       string    `json:"run_id"`
	Mode        string    `json:"mode"`
	TargetYear  string    `json:"target_year,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	DistrictsProcessed int `json:"districts_processed"`
	DistrictsSkipped   int `json:"districts_skipped"`
	Results            int `json:"results"`
	ValidResults       int `json:"valid_results"`

	// Hierarchy counts check the base-scope inclusion invariant
	// (teachers_only <= ... <= all) over the run's resolved profiles.
	// HierarchyFailures samples the district ids behind the fail count.
	HierarchyPass     int      `json:"hierarchy_pass"`
	HierarchyFail     int      `json:"hierarchy_fail"`
	HierarchyFailures []string `json:"hierarchy_failures,omitempty"`

	ScopeStats []ScopeStats   `json:"scope_stats"`
	FlagCounts map[string]int `json:"flag_counts,omitempty"`
	Outliers   []Outlier      `json:"outliers,omitempty"`
}

// maxOutlierSamples bounds how many flagged rows the summary carries.
const maxOutlierSamples = 20

// BuildQASummary computes the QA summary for a run from its stored
// results. Only valid rows (0 < LCT <= 360) enter the statistics;
// invalid rows are counted and sampled as outliers.
func BuildQASummary(st *store.Store, run *store.CalculationRun, processed, skipped int) (*QASummary, error) {
	results, err := st.GetLCTResultsByRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run results: %w", err)
	}

	summary := &QASummary{
		RunID:              run.RunID,
		Mode:               run.Mode,
		TargetYear:         run.TargetYear,
		GeneratedAt:        time.Now(),
		DistrictsProcessed: processed,
		DistrictsSkipped:   skipped,
		Results:            len(results),
		FlagCounts:         make(map[string]int),
	}

	profiles, err := st.GetResolvedProfilesByRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run profiles: %w", err)
	}
	for _, p := range profiles {
		if profileHierarchyHolds(p) {
			summary.HierarchyPass++
		} else {
			summary.HierarchyFail++
			if len(summary.HierarchyFailures) < maxOutlierSamples {
				summary.HierarchyFailures = append(summary.HierarchyFailures, p.DistrictID)
			}
		}
	}

	valuesByScope := make(map[string][]float64)
	invalidByScope := make(map[string]int)

	for _, r := range results {
		if r.Notes != "" {
			for _, flag := range knownFlags {
				if containsFlag(r.Notes, flag) {
					summary.FlagCounts[flag]++
				}
			}
		}

		if !r.Valid || !r.LCT.Valid {
			invalidByScope[r.StaffScope]++
			if len(summary.Outliers) < maxOutlierSamples {
				summary.Outliers = append(summary.Outliers, Outlier{
					DistrictID: r.DistrictID,
					Scope:      r.StaffScope,
					LCT:        r.LCT.Float64,
					Flags:      r.Notes,
				})
			}
			continue
		}

		summary.ValidResults++
		valuesByScope[r.StaffScope] = append(valuesByScope[r.StaffScope], r.LCT.Float64)
	}

	scopes := make([]string, 0, len(valuesByScope))
	for s := range valuesByScope {
		scopes = append(scopes, s)
	}
	for s := range invalidByScope {
		if _, ok := valuesByScope[s]; !ok {
			scopes = append(scopes, s)
		}
	}
	sort.Strings(scopes)

	for _, s := range scopes {
		values := valuesByScope[s]
		stats := ScopeStats{Scope: s, Count: len(values), Invalid: invalidByScope[s]}
		if len(values) > 0 {
			sorted := append([]float64(nil), values...)
			sort.Float64s(sorted)
			stats.Mean = stat.Mean(sorted, nil)
			stats.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			stats.Min = sorted[0]
			stats.Max = sorted[len(sorted)-1]
		}
		summary.ScopeStats = append(summary.ScopeStats, stats)
	}

	return summary, nil
}

// profileHierarchyHolds checks the base-scope inclusion invariant on a
// stored profile. NULL columns skip the comparison.
func profileHierarchyHolds(p *store.ResolvedStaffProfile) bool {
	chain := []sql.NullFloat64{
		p.TeachersOnly, p.TeachersCore, p.Instructional,
		p.InstructionalPlusSupport, p.AllStaff,
	}
	prev := 0.0
	havePrev := false
	for _, v := range chain {
		if !v.Valid {
			continue
		}
		if havePrev && prev > v.Float64 {
			return false
		}
		prev = v.Float64
		havePrev = true
	}
	return true
}

// knownFlags lists every flag the pipeline can raise, for counting.
var knownFlags = []string{
	"ERR_FLAT_STAFF",
	"ERR_IMPOSSIBLE_SSR",
	"ERR_VOLATILE",
	"ERR_RATIO_CEILING",
	"ERR_SPAN_EXCEEDED",
	"WARN_LCT_LOW",
	"WARN_LCT_HIGH",
	"WARN_SPED_RATIO_CAP",
	"WARN_YEAR_GAP",
}

func containsFlag(notes, flag string) bool {
	return strings.Contains(notes, flag)
}

// JSON renders the summary for storage on the run ledger row.
func (q *QASummary) JSON() (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to marshal qa summary: %w", err)
	}
	return string(data), nil
}
