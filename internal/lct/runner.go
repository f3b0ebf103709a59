package lct

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/edmetrics/lct/internal/report"
	"github.com/edmetrics/lct/internal/resolve"
	"github.com/edmetrics/lct/internal/scope"
	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

// Runner drives a calculation run across every district in the store.
type Runner struct {
	store    *store.Store
	resolver *resolve.Resolver
	logger   *report.EventLogger

	mode       string
	targetYear string
	trackRuns  bool
}

// Config holds runner configuration
type Config struct {
	Store  *store.Store
	Logger *report.EventLogger

	// Mode is BLENDED or TARGET_YEAR. TARGET_YEAR requires TargetYear;
	// BLENDED anchors each district to its own most recent enrollment
	// year and TargetYear is ignored.
	Mode       string
	TargetYear string

	// NoRunTracking skips the run ledger. Results and profiles are still
	// computed and written under a fresh run id; the ledger never sees it.
	NoRunTracking bool
}

// New creates a new Runner
func New(cfg *Config) (*Runner, error) {
	switch cfg.Mode {
	case store.ModeBlended:
	case store.ModeTargetYear:
		if cfg.TargetYear == "" {
			return nil, fmt.Errorf("%w: TARGET_YEAR mode requires a target year", util.ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", util.ErrInvalidConfig, cfg.Mode)
	}

	return &Runner{
		store:      cfg.Store,
		resolver:   resolve.New(cfg.Store),
		logger:     cfg.Logger,
		mode:       cfg.Mode,
		targetYear: cfg.TargetYear,
		trackRuns:  !cfg.NoRunTracking,
	}, nil
}

// Result represents a completed calculation run
type Result struct {
	RunID              string
	DistrictsProcessed int
	DistrictsSkipped   int
	Calculations       int
	Summary            *report.QASummary
	Errors             []error
}

// Run executes one full calculation pass. Unless tracking is off, the
// run is recorded in the ledger before any district is touched and
// finalized exactly once. Per-district failures are skips; only
// store-level failures abort.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	r.logger.SetRunID(runID)

	util.InfoLog("Starting calculation run %s (%s)", runID, r.mode)

	var run *store.CalculationRun
	if r.trackRuns {
		var err error
		run, err = r.store.StartRun(runID, r.mode, r.targetYear)
		if err != nil {
			return nil, fmt.Errorf("failed to start run: %w", err)
		}
	} else {
		run = &store.CalculationRun{RunID: runID, Mode: r.mode, TargetYear: r.targetYear}
	}

	districts, err := r.store.GetAllDistricts()
	if err != nil {
		r.failRun(runID, err)
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}

	if len(districts) == 0 {
		util.InfoLog("No districts loaded, nothing to calculate")
	} else {
		util.InfoLog("Found %d districts to process", len(districts))
	}

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(districts),
			progressbar.OptionSetDescription("Calculating"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("districts"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	result := &Result{RunID: runID}

	for _, d := range districts {
		select {
		case <-ctx.Done():
			r.failRun(runID, ctx.Err())
			return nil, ctx.Err()
		default:
		}

		calcs, err := r.processDistrict(d, runID)
		if err != nil {
			if errors.Is(err, util.ErrNoCandidates) {
				result.DistrictsSkipped++
				util.DebugLog("Skipping district %s: %v", d.NCESID, err)
				r.logger.LogSkip(d.NCESID, err.Error())
			} else {
				result.DistrictsSkipped++
				result.Errors = append(result.Errors, fmt.Errorf("district %s: %w", d.NCESID, err))
				r.logger.LogError(d.NCESID, err)
			}
		} else {
			result.DistrictsProcessed++
			result.Calculations += calcs
		}

		if bar != nil {
			bar.Add(1)
		}
	}

	if bar != nil {
		bar.Finish()
	}

	summary, err := report.BuildQASummary(r.store, run, result.DistrictsProcessed, result.DistrictsSkipped)
	if err != nil {
		r.failRun(runID, err)
		return nil, fmt.Errorf("failed to build qa summary: %w", err)
	}
	result.Summary = summary

	if r.trackRuns {
		summaryJSON, err := summary.JSON()
		if err != nil {
			r.failRun(runID, err)
			return nil, err
		}

		err = r.store.CompleteRun(runID, result.DistrictsProcessed, result.DistrictsSkipped, result.Calculations, summaryJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to complete run: %w", err)
		}
	}

	util.SuccessLog("Run %s complete: %d districts, %d skipped, %d calculations",
		runID, result.DistrictsProcessed, result.DistrictsSkipped, result.Calculations)

	return result, nil
}

func (r *Runner) failRun(runID string, cause error) {
	if !r.trackRuns {
		return
	}
	if err := r.store.FailRun(runID, cause.Error()); err != nil {
		util.ErrorLog("Failed to mark run %s failed: %v", runID, err)
	}
}

// minutesLevelFor maps a scope's denominator to the grade band whose
// instructional minutes apply. District-wide denominators use the middle
// band as the representative school day.
func minutesLevelFor(t scope.EnrollmentType) string {
	switch t {
	case scope.EnrollmentElementary:
		return store.GradeLevelElementary
	case scope.EnrollmentSecondary:
		return store.GradeLevelHigh
	default:
		return store.GradeLevelMiddle
	}
}

// processDistrict resolves, aggregates, and calculates one district. All
// writes happen in a single transaction so a failure never leaves a
// half-calculated district behind.
func (r *Runner) processDistrict(d *store.District, runID string) (int, error) {
	anchor, err := r.resolver.AnchorYear(d.NCESID, r.mode, r.targetYear)
	if err != nil {
		return 0, err
	}

	enrollSel, err := r.resolver.ResolveEnrollment(d.NCESID, anchor, r.mode)
	if err != nil {
		return 0, err
	}

	staffSel, err := r.resolver.ResolveStaffing(d.NCESID, anchor)
	if err != nil {
		return 0, err
	}

	spedSel, err := r.resolver.ResolveSped(d.NCESID, anchor)
	if err != nil {
		return 0, err
	}

	r.logger.LogResolve(d.NCESID, "staff", staffSel.Source, staffSel.Year, staffSel.Rule, staffSel.Span, staffSel.Flags)
	r.logger.LogResolve(d.NCESID, "enrollment", enrollSel.Source, enrollSel.Year, enrollSel.Rule, enrollSel.Span, enrollSel.Flags)
	if spedSel != nil {
		r.logger.LogResolve(d.NCESID, "sped", spedSel.Method, spedSel.Year, "", spedSel.Span, spedSel.Flags)
	}

	hasSped := spedSel != nil && spedSel.HasRatio
	var ratio float64
	if hasSped {
		ratio = spedSel.TeacherRatio
	}

	profile := scope.Aggregate(staffSel.Fact, ratio, hasSped)

	// District-level safeguards apply to every row the district emits.
	var districtFlags []string
	districtFlags = append(districtFlags, profile.Flags...)
	if FlatStaff(profile) {
		districtFlags = append(districtFlags, FlagFlatStaff)
	}
	if k12, ok := enrollSel.Fact.TotalK12(); ok && k12 < MinStableEnrollment {
		districtFlags = append(districtFlags, FlagVolatile)
	}

	resolution := strings.Join([]string{
		staffSel.Describe(),
		enrollSel.Describe(),
		spedSel.Describe(),
	}, "; ")
	if note := profile.Notes(); note != "" {
		resolution += "; " + note
	}

	// Minutes are resolved per grade band, at most once each.
	minutesByLevel := make(map[string]*resolve.MinutesSelection)
	minutesFor := func(t scope.EnrollmentType) (*resolve.MinutesSelection, error) {
		level := minutesLevelFor(t)
		if sel, ok := minutesByLevel[level]; ok {
			return sel, nil
		}
		sel, err := r.resolver.ResolveMinutes(d.NCESID, d.State, level, anchor)
		if err != nil {
			return nil, err
		}
		minutesByLevel[level] = sel
		return sel, nil
	}

	calcs := 0
	err = r.store.Transaction(func(tx *sql.Tx) error {
		if err := r.store.UpsertResolvedProfileTx(tx, buildProfileRow(d.NCESID, anchor, runID, profile, staffSel, resolution)); err != nil {
			return err
		}

		for _, s := range scope.AllScopes() {
			staffCount, ok := profile.Total(s)
			if !ok {
				continue // SPED scopes without a segmentation
			}

			enrollment, haveEnrollment := denominatorFor(s.Enrollment(), enrollSel.Fact, spedSel)

			minSel, err := minutesFor(s.Enrollment())
			if err != nil {
				return err
			}

			row := &store.LCTResult{
				RunID:                runID,
				DistrictID:           d.NCESID,
				Year:                 anchor,
				StaffScope:           s.String(),
				InstructionalMinutes: minSel.Minutes,
				MinutesSource:        minSel.Source,
				MinutesYear:          minSel.Year,
				StaffCount:           staffCount,
				StaffSource:          staffSel.Source,
				StaffYear:            staffSel.Year,
				EnrollmentType:       s.Enrollment().String(),
			}

			flags := append([]string(nil), districtFlags...)
			flags = append(flags, minSel.Flags...)

			var v *Value
			if haveEnrollment {
				row.Enrollment = enrollment
				v = Compute(minSel.Minutes, staffCount, enrollment, s)
			}

			if v != nil {
				row.LCT = sql.NullFloat64{Float64: v.LCT, Valid: true}
				row.Valid = v.Valid
				flags = append(flags, v.Flags...)
			} else {
				flags = append(flags, "undefined")
			}
			row.Notes = strings.Join(flags, "; ")

			if err := r.store.InsertLCTResultTx(tx, row); err != nil {
				return err
			}

			if v != nil {
				r.logger.LogCalculate(d.NCESID, s.String(), v.LCT, v.Valid, v.Flags)
			}
			calcs++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to calculate district %s: %w", d.NCESID, err)
	}

	return calcs, nil
}

// denominatorFor pairs an enrollment type with its student count.
func denominatorFor(t scope.EnrollmentType, f *store.EnrollmentFact, sped *resolve.SpedSelection) (float64, bool) {
	switch t {
	case scope.EnrollmentK12:
		return f.TotalK12()
	case scope.EnrollmentElementary:
		return f.Elementary()
	case scope.EnrollmentSecondary:
		return f.Secondary()
	case scope.EnrollmentSpedSelfContained:
		if sped == nil || !sped.Estimate.SelfContained.Valid {
			return 0, false
		}
		return sped.Estimate.SelfContained.Float64, true
	case scope.EnrollmentGenEd:
		k12, ok := f.TotalK12()
		if !ok || sped == nil || !sped.Estimate.SelfContained.Valid {
			return 0, false
		}
		return k12 - sped.Estimate.SelfContained.Float64, true
	default:
		return 0, false
	}
}

func buildProfileRow(districtID, anchor, runID string, p *scope.Profile, staffSel *resolve.StaffSelection, resolution string) *store.ResolvedStaffProfile {
	get := func(s scope.Scope) sql.NullFloat64 {
		v, ok := p.Total(s)
		if !ok {
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: v, Valid: true}
	}

	return &store.ResolvedStaffProfile{
		DistrictID:               districtID,
		TargetYear:               anchor,
		TeachersOnly:             get(scope.TeachersOnly),
		TeachersCore:             get(scope.TeachersCore),
		Instructional:            get(scope.Instructional),
		InstructionalPlusSupport: get(scope.InstructionalPlusSupport),
		AllStaff:                 get(scope.All),
		TeachersElementary:       get(scope.TeachersElementary),
		TeachersSecondary:        get(scope.TeachersSecondary),
		CoreSped:                 get(scope.CoreSped),
		TeachersGenEd:            get(scope.TeachersGenEd),
		InstructionalSped:        get(scope.InstructionalSped),
		PrimarySource:            staffSel.Source,
		PrimarySourceYear:        staffSel.Year,
		SourcesUsed:              staffSel.Rule,
		ResolutionNotes:          resolution,
		RunID:                    runID,
	}
}
