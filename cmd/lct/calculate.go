package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/lct"
	"github.com/edmetrics/lct/internal/report"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Run the LCT calculation across all loaded districts",
	Long: `Run a full Learning Connection Time calculation.

Modes:
  BLENDED      (default) each district anchors on its own most recent
               enrollment year and blends staff and minutes around it
  TARGET_YEAR  enrollment is anchored to --year for every district; staff
               and minutes blend around it within the 3-year window

Every run is recorded in the run ledger before any district is touched
and finalized exactly once, with per-scope QA statistics. Districts
missing required facts are skipped and reported, never fatal. Results
are keyed by run id, so recomputation never disturbs earlier runs.`,
	RunE: runCalculate,
}

func init() {
	rootCmd.AddCommand(calculateCmd)

	calculateCmd.Flags().String("mode", store.ModeBlended, "calculation mode (BLENDED or TARGET_YEAR)")
	calculateCmd.Flags().String("year", "", "target school year, e.g. 2023-24 (required for TARGET_YEAR)")
	calculateCmd.Flags().String("artifacts", "artifacts", "directory for event logs")
	calculateCmd.Flags().Bool("no-run-tracking", false, "skip the run ledger (results are still written)")

	viper.BindPFlag("no-run-tracking", calculateCmd.Flags().Lookup("no-run-tracking"))
}

func runCalculate(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	mode := strings.ToUpper(cmd.Flag("mode").Value.String())
	targetYear, _ := cmd.Flags().GetString("year")
	artifacts, _ := cmd.Flags().GetString("artifacts")

	dbPath := viper.GetString("db")
	util.InfoLog("Opening registry: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logLevel := report.LevelInfo
	if quiet {
		logLevel = report.LevelWarning
	} else if verbose {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(artifacts, "", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	runner, err := lct.New(&lct.Config{
		Store:         db,
		Logger:        logger,
		Mode:          mode,
		TargetYear:    targetYear,
		NoRunTracking: viper.GetBool("no-run-tracking"),
	})
	if err != nil {
		return err
	}

	// Ctrl-C marks the run failed in the ledger instead of leaving it open.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("calculation failed: %w", err)
	}

	for _, runErr := range result.Errors {
		util.WarnLog("%v", runErr)
	}

	fmt.Printf("\nRun %s\n", result.RunID)
	fmt.Printf("  Districts processed: %d\n", result.DistrictsProcessed)
	fmt.Printf("  Districts skipped:   %d\n", result.DistrictsSkipped)
	fmt.Printf("  Calculations:        %d\n", result.Calculations)
	if viper.GetBool("no-run-tracking") {
		fmt.Printf("\nRun tracking was off; this run is not in the ledger.\n")
	} else {
		fmt.Printf("\nUse 'lct report --run %s' for the full QA report.\n", result.RunID)
	}

	return nil
}
