package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/report"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Markdown QA report for a calculation run",
	Long: `Generate a Markdown QA report for a calculation run.

The report includes per-scope LCT statistics over the valid subset,
data-quality flag counts, and flagged results for review. Defaults to
the most recent run.

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("run", "", "run id (default: latest run)")
	reportCmd.Flags().String("out", "", "output directory (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "path to the run's event log (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	dbPath := viper.GetString("db")
	util.InfoLog("Opening registry: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runID, _ := cmd.Flags().GetString("run")
	run, err := findRun(db, runID)
	if err != nil {
		return err
	}

	// Reuse the summary stored at completion time; rebuild it only for
	// runs finalized before one was stored.
	var summary *report.QASummary
	if run.QASummary != "" {
		summary = &report.QASummary{}
		if err := json.Unmarshal([]byte(run.QASummary), summary); err != nil {
			util.WarnLog("Stored QA summary is unreadable, rebuilding: %v", err)
			summary = nil
		}
	}
	if summary == nil {
		summary, err = report.BuildQASummary(db, run, run.DistrictsProcessed, run.DistrictsSkipped)
		if err != nil {
			return err
		}
	}

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = filepath.Join("artifacts", "reports", time.Now().Format("20060102-150405"))
	}
	outPath := filepath.Join(outDir, "summary.md")

	eventLog, _ := cmd.Flags().GetString("event-log")

	if err := report.WriteMarkdownReport(summary, eventLog, outPath); err != nil {
		return err
	}

	util.SuccessLog("Report written to %s", outPath)
	return nil
}

// findRun fetches a run by id, or the latest when id is empty.
func findRun(db *store.Store, runID string) (*store.CalculationRun, error) {
	if runID != "" {
		run, err := db.GetRun(runID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return run, nil
	}

	run, err := db.GetLatestRun()
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no runs recorded yet (use 'lct calculate' first)")
	}
	return run, nil
}
