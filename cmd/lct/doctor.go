package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the registry and environment",
	Long: `Run diagnostic checks to ensure lct can operate correctly.

This command checks:
- SQLite version and database accessibility
- Database schema integrity
- Registry coverage: districts, facts, crosswalk, schedules
- Run ledger consistency (runs left open by a crash)

Use this command to troubleshoot issues before running calculations.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	util.InfoLog("=== LCT Doctor - Registry Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{checkSQLite()}

	dbPath := viper.GetString("db")
	results = append(results, checkDatabase(dbPath))

	// Coverage and ledger checks only make sense on an existing registry.
	if _, err := os.Stat(dbPath); err == nil {
		db, err := store.Open(dbPath)
		if err == nil {
			defer db.Close()
			results = append(results, checkCoverage(db)...)
			results = append(results, checkOrphans(db))
			results = append(results, checkRunLedger(db))
		}
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Resolve errors before running lct.")
		return fmt.Errorf("registry diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed. Registry is ready.")
	}

	return nil
}

// checkSQLite verifies the embedded SQLite library
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility and integrity
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, integrity ok)", dbPath, humanize.Bytes(uint64(info.Size()))),
	}
}

// checkCoverage reports how much of the registry is populated
func checkCoverage(db *store.Store) []checkResult {
	var results []checkResult

	counts := []struct {
		name     string
		count    func() (int, error)
		required bool
	}{
		{"Districts", db.CountDistricts, true},
		{"Staff facts", db.CountStaffFacts, true},
		{"Enrollment facts", db.CountEnrollmentFacts, true},
		{"SPED estimates", db.CountSpedEstimates, false},
		{"Bell schedules", db.CountBellSchedules, false},
	}

	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			results = append(results, checkResult{name: c.name, error: true, message: err.Error()})
			continue
		}
		r := checkResult{name: c.name, message: humanize.Comma(int64(n))}
		if n == 0 {
			r.message = "none loaded"
			if c.required {
				r.warning = true
				r.message += " (required for calculations)"
			}
		}
		results = append(results, r)
	}

	return results
}

// checkOrphans looks for facts whose district never made it into the
// directory
func checkOrphans(db *store.Store) checkResult {
	n, err := db.CountOrphanFacts()
	if err != nil {
		return checkResult{name: "Orphan facts", error: true, message: err.Error()}
	}
	if n > 0 {
		return checkResult{
			name:    "Orphan facts",
			warning: true,
			message: fmt.Sprintf("%s fact(s) reference districts not in the directory", humanize.Comma(int64(n))),
		}
	}
	return checkResult{name: "Orphan facts", message: "none"}
}

// checkRunLedger looks for runs a crash left open
func checkRunLedger(db *store.Store) checkResult {
	runs, err := db.ListRuns()
	if err != nil {
		return checkResult{name: "Run ledger", error: true, message: err.Error()}
	}

	open := 0
	for _, r := range runs {
		if r.Status == store.RunStatusOpen {
			open++
		}
	}

	if open > 0 {
		return checkResult{
			name:    "Run ledger",
			warning: true,
			message: fmt.Sprintf("%d run(s) still open, likely interrupted", open),
		}
	}

	return checkResult{
		name:    "Run ledger",
		message: fmt.Sprintf("%d run(s), none open", len(runs)),
	}
}
