package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show <nces_id>",
	Short: "Show a district's resolved profile and latest results",
	Long: `Display everything the registry knows about one district:
its loaded facts, the resolved staff profile with its provenance, and
the district's LCT results from the most recent run that covered it.

Use this to audit why a district got the numbers it did.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("facts", false, "also list every loaded source fact")
}

func runShow(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	ncesID := args[0]
	showFacts, _ := cmd.Flags().GetBool("facts")

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	district, err := db.GetDistrict(ncesID)
	if err != nil {
		return err
	}
	if district == nil {
		return fmt.Errorf("district %s not found", ncesID)
	}

	fmt.Printf("District %s: %s (%s)\n\n", district.NCESID, district.Name, district.State)

	if showFacts {
		if err := printFacts(db, ncesID); err != nil {
			return err
		}
	}

	results, err := db.GetLCTResultsByDistrict(ncesID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		util.WarnLog("No results for this district yet. Use 'lct calculate' first.")
		return nil
	}

	// Results arrive oldest first; show only the latest run's rows.
	latest := results[len(results)-1]
	latestRun := latest.RunID
	profile, err := db.GetResolvedProfile(ncesID, latest.Year)
	if err != nil {
		return err
	}

	if profile != nil {
		fmt.Printf("Resolved profile (%s, via %s %s):\n",
			profile.TargetYear, profile.PrimarySource, profile.PrimarySourceYear)
		if profile.ResolutionNotes != "" {
			fmt.Printf("  %s\n", profile.ResolutionNotes)
		}
		fmt.Println()
	}

	fmt.Printf("Results from run %s:\n\n", latestRun)
	fmt.Printf("%-28s  %8s  %8s  %10s  %-18s  %s\n",
		"SCOPE", "LCT", "STAFF", "ENROLLMENT", "MINUTES", "NOTES")

	for _, r := range results {
		if r.RunID != latestRun {
			continue
		}

		lctStr := "-"
		if r.LCT.Valid {
			lctStr = fmt.Sprintf("%.1f", r.LCT.Float64)
		}
		minutes := fmt.Sprintf("%.0f (%s)", r.InstructionalMinutes, r.MinutesSource)

		notes := r.Notes
		if len(notes) > 50 {
			notes = notes[:47] + "..."
		}

		fmt.Printf("%-28s  %8s  %8.1f  %10.0f  %-18s  %s\n",
			r.StaffScope, lctStr, r.StaffCount, r.Enrollment, minutes, notes)
	}

	return nil
}

func printFacts(db *store.Store, ncesID string) error {
	staff, err := db.GetStaffFacts(ncesID)
	if err != nil {
		return err
	}
	enrollment, err := db.GetEnrollmentFacts(ncesID)
	if err != nil {
		return err
	}
	sped, err := db.GetSpedEstimates(ncesID)
	if err != nil {
		return err
	}
	schedules, err := db.GetBellSchedules(ncesID)
	if err != nil {
		return err
	}

	fmt.Println("Loaded facts:")
	for _, f := range staff {
		fmt.Printf("  staff       %s %s\n", f.SourceYear, f.SourceName)
	}
	for _, f := range enrollment {
		fmt.Printf("  enrollment  %s %s\n", f.SourceYear, f.SourceName)
	}
	for _, e := range sped {
		fmt.Printf("  sped        %s %s (%s)\n", e.EstimateYear, e.Method, e.Confidence)
	}
	for _, b := range schedules {
		fmt.Printf("  schedule    %s %s %.0f min\n", b.Year, b.GradeLevel, b.InstructionalMinutes)
	}
	if len(staff)+len(enrollment)+len(sped)+len(schedules) == 0 {
		fmt.Println("  (none)")
	}
	fmt.Println(strings.Repeat("-", 40))

	return nil
}
