package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// WriteMarkdownReport renders a QA summary to a Markdown file for human
// review.
func WriteMarkdownReport(summary *QASummary, eventLogPath, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Learning Connection Time - Run Report\n\n")
	md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", summary.RunID))
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05")))
	md.WriteString(fmt.Sprintf("**Mode:** %s", summary.Mode))
	if summary.TargetYear != "" {
		md.WriteString(fmt.Sprintf(" (target year %s)", summary.TargetYear))
	}
	md.WriteString("\n\n")

	if eventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", eventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Districts Processed | %s |\n", humanize.Comma(int64(summary.DistrictsProcessed))))
	if summary.DistrictsSkipped > 0 {
		md.WriteString(fmt.Sprintf("| Districts Skipped | %s |\n", humanize.Comma(int64(summary.DistrictsSkipped))))
	}
	md.WriteString(fmt.Sprintf("| Results | %s |\n", humanize.Comma(int64(summary.Results))))
	md.WriteString(fmt.Sprintf("| Valid Results | %s |\n", humanize.Comma(int64(summary.ValidResults))))
	if summary.HierarchyFail > 0 {
		md.WriteString(fmt.Sprintf("| Hierarchy Violations | %s |\n", humanize.Comma(int64(summary.HierarchyFail))))
	}
	md.WriteString("\n")

	if len(summary.HierarchyFailures) > 0 {
		md.WriteString("## ⚠️ Hierarchy Violations\n\n")
		md.WriteString("Districts whose base scopes are not nested (teachers_only ≤ ... ≤ all):\n\n")
		for _, id := range summary.HierarchyFailures {
			md.WriteString(fmt.Sprintf("- `%s`\n", id))
		}
		md.WriteString("\n")
	}

	if len(summary.ScopeStats) > 0 {
		md.WriteString("## 📐 LCT by Scope (valid results, minutes/day)\n\n")
		md.WriteString("| Scope | Count | Mean | Median | Min | Max | Invalid |\n")
		md.WriteString("|-------|-------|------|--------|-----|-----|--------|\n")
		for _, s := range summary.ScopeStats {
			md.WriteString(fmt.Sprintf("| %s | %d | %.1f | %.1f | %.1f | %.1f | %d |\n",
				s.Scope, s.Count, s.Mean, s.Median, s.Min, s.Max, s.Invalid))
		}
		md.WriteString("\n")
	}

	if len(summary.FlagCounts) > 0 {
		md.WriteString("## 🚩 Data-Quality Flags\n\n")
		md.WriteString("| Flag | Count |\n")
		md.WriteString("|------|-------|\n")

		flags := make([]string, 0, len(summary.FlagCounts))
		for f := range summary.FlagCounts {
			flags = append(flags, f)
		}
		sort.Strings(flags)
		for _, f := range flags {
			md.WriteString(fmt.Sprintf("| `%s` | %s |\n", f, humanize.Comma(int64(summary.FlagCounts[f]))))
		}
		md.WriteString("\n")
	}

	if len(summary.Outliers) > 0 {
		md.WriteString(fmt.Sprintf("## 🔍 Flagged Results (first %d)\n\n", len(summary.Outliers)))
		md.WriteString("| District | Scope | LCT | Flags |\n")
		md.WriteString("|----------|-------|-----|-------|\n")
		for _, o := range summary.Outliers {
			md.WriteString(fmt.Sprintf("| %s | %s | %.1f | %s |\n",
				o.DistrictID, o.Scope, o.LCT, truncateNotes(o.Flags, 60)))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Invalid results stay in the full export; they are only excluded from the statistics above.*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func truncateNotes(notes string, maxLen int) string {
	if len(notes) <= maxLen {
		return notes
	}
	return notes[:maxLen-3] + "..."
}
