package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the run ledger",
	Long: `List every calculation run in the ledger, newest first, with its
mode, status, counts, and timing. Failed runs show their reason.`,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		util.WarnLog("No runs recorded yet. Use 'lct calculate' first.")
		return nil
	}

	fmt.Printf("%-36s  %-11s  %-9s  %-7s  %10s  %8s  %12s\n",
		"RUN", "MODE", "STATUS", "YEAR", "DISTRICTS", "SKIPPED", "CALCULATIONS")

	for _, r := range runs {
		year := r.TargetYear
		if year == "" {
			year = "-"
		}
		fmt.Printf("%-36s  %-11s  %-9s  %-7s  %10s  %8s  %12s\n",
			r.RunID, r.Mode, r.Status, year,
			humanize.Comma(int64(r.DistrictsProcessed)),
			humanize.Comma(int64(r.DistrictsSkipped)),
			humanize.Comma(int64(r.Calculations)))

		if r.Status == store.RunStatusFailed && r.FailureReason != "" {
			fmt.Printf("%38s%s\n", "", r.FailureReason)
		}
	}

	return nil
}
