package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edmetrics/lct/internal/loader"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

var loadCmd = &cobra.Command{
	Use:   "load <kind> <file.csv>",
	Short: "Load a normalized CSV extract into the registry",
	Long: `Load a normalized CSV extract into the local source registry.

Supported kinds:
  districts     district directory (nces_id, name, state)
  crosswalk     state-id to NCES-id mappings
  staff         staff category counts per (district, year, source)
  enrollment    grade-level enrollment per (district, year, source)
  sped          SPED segmentation estimates
  schedules     enriched bell schedules
  requirements  statutory state minimum minutes

Staff, enrollment, and SPED rows without an nces_id column are resolved
through the crosswalk; unmapped districts are skipped and reported.
Facts are append-only: reloading the same extract never overwrites.`,
	Args: cobra.ExactArgs(2),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

// loaders maps a kind argument to its import function.
var loaders = map[string]func(*store.Store, string) (*loader.Result, error){
	"districts":    loader.LoadDistricts,
	"crosswalk":    loader.LoadCrosswalk,
	"staff":        loader.LoadStaffFacts,
	"enrollment":   loader.LoadEnrollmentFacts,
	"sped":         loader.LoadSpedEstimates,
	"schedules":    loader.LoadBellSchedules,
	"requirements": loader.LoadStateRequirements,
}

func runLoad(cmd *cobra.Command, args []string) error {
	kind, path := args[0], args[1]

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	load, ok := loaders[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q (see 'lct load --help')", kind)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}

	dbPath := viper.GetString("db")
	util.InfoLog("Opening registry: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	result, err := load(db, path)
	if err != nil {
		return err
	}

	util.SuccessLog("Loaded %s: %d rows read, %d loaded, %d skipped",
		kind, result.RowsRead, result.RowsLoaded, result.RowsSkipped)

	if viper.GetBool("verbose") {
		for _, loadErr := range result.Errors {
			util.WarnLog("%v", loadErr)
		}
	}

	return nil
}
