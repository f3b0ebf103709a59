package store

// Schema v1 - source registry, derived tables, and the run ledger.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical district reference data, keyed by the federal NCES identifier.
CREATE TABLE IF NOT EXISTS districts (
  nces_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  state TEXT NOT NULL,
  enrollment INTEGER,
  year TEXT,
  data_source TEXT
);

CREATE INDEX IF NOT EXISTS idx_districts_state ON districts(state);

-- State-native district identifier to NCES identifier mapping.
CREATE TABLE IF NOT EXISTS crosswalk (
  state TEXT NOT NULL,
  state_district_id TEXT NOT NULL,
  nces_id TEXT NOT NULL REFERENCES districts(nces_id),
  district_name TEXT,
  PRIMARY KEY (state, state_district_id)
);

CREATE INDEX IF NOT EXISTS idx_crosswalk_nces ON crosswalk(nces_id);

-- Category-level staff FTE counts, one row per (district, year, source).
-- Rows are only ever added, never overwritten; NULL means the source did
-- not report the category at all.
CREATE TABLE IF NOT EXISTS staff_facts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  source_year TEXT NOT NULL,
  source_name TEXT NOT NULL,
  teachers_prek REAL,
  teachers_kindergarten REAL,
  teachers_elementary REAL,
  teachers_secondary REAL,
  teachers_ungraded REAL,
  instructional_coordinators REAL,
  paraprofessionals REAL,
  counselors REAL,
  psychologists REAL,
  student_support REAL,
  administrators REAL,
  librarians REAL,
  other_staff REAL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (district_id, source_year, source_name)
);

CREATE INDEX IF NOT EXISTS idx_staff_facts_district ON staff_facts(district_id);

-- Grade-level enrollment counts, one row per (district, year, source).
CREATE TABLE IF NOT EXISTS enrollment_facts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  source_year TEXT NOT NULL,
  source_name TEXT NOT NULL,
  prek REAL,
  kindergarten REAL,
  grade_01 REAL,
  grade_02 REAL,
  grade_03 REAL,
  grade_04 REAL,
  grade_05 REAL,
  grade_06 REAL,
  grade_07 REAL,
  grade_08 REAL,
  grade_09 REAL,
  grade_10 REAL,
  grade_11 REAL,
  grade_12 REAL,
  ungraded REAL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (district_id, source_year, source_name)
);

CREATE INDEX IF NOT EXISTS idx_enrollment_facts_district ON enrollment_facts(district_id);

-- Special-education split candidates: state actuals or the modeled
-- 2017-18 federal baseline.
CREATE TABLE IF NOT EXISTS sped_estimates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  estimate_year TEXT NOT NULL,
  method TEXT NOT NULL,
  self_contained REAL,
  mainstreamed REAL,
  teacher_ratio REAL,
  confidence TEXT NOT NULL DEFAULT 'medium',
  used_state_average INTEGER DEFAULT 0,
  notes TEXT,
  UNIQUE (district_id, estimate_year, method)
);

CREATE INDEX IF NOT EXISTS idx_sped_estimates_district ON sped_estimates(district_id);

-- Actual bell schedules from enrichment or manual entry.
CREATE TABLE IF NOT EXISTS bell_schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  year TEXT NOT NULL,
  grade_level TEXT NOT NULL,
  start_time TEXT,
  end_time TEXT,
  instructional_minutes REAL NOT NULL,
  confidence TEXT,
  method TEXT,
  UNIQUE (district_id, year, grade_level)
);

CREATE INDEX IF NOT EXISTS idx_bell_schedules_district ON bell_schedules(district_id);

-- Statutory minimum instructional minutes per state.
CREATE TABLE IF NOT EXISTS state_requirements (
  state TEXT PRIMARY KEY,
  elementary_minutes REAL,
  middle_minutes REAL,
  high_minutes REAL,
  default_minutes REAL
);

-- Result of applying precedence across all staff facts for a district.
-- Exactly one live row per (district, target_year); recomputed each run.
CREATE TABLE IF NOT EXISTS resolved_staff_profiles (
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  target_year TEXT NOT NULL,
  teachers_only REAL,
  teachers_core REAL,
  instructional REAL,
  instructional_plus_support REAL,
  all_staff REAL,
  teachers_elementary REAL,
  teachers_secondary REAL,
  core_sped REAL,
  teachers_gened REAL,
  instructional_sped REAL,
  primary_source TEXT,
  primary_source_year TEXT,
  sources_used TEXT,
  resolution_notes TEXT,
  run_id TEXT,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (district_id, target_year)
);

-- Flat per-scope calculation output with every input that produced it.
CREATE TABLE IF NOT EXISTS lct_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  district_id TEXT NOT NULL REFERENCES districts(nces_id),
  year TEXT NOT NULL,
  staff_scope TEXT NOT NULL,
  lct_value REAL,
  instructional_minutes REAL,
  minutes_source TEXT,
  minutes_year TEXT,
  staff_count REAL,
  staff_source TEXT,
  staff_year TEXT,
  enrollment REAL,
  enrollment_type TEXT,
  valid INTEGER DEFAULT 0,
  notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_lct_results_run ON lct_results(run_id);
CREATE INDEX IF NOT EXISTS idx_lct_results_district ON lct_results(district_id);
CREATE INDEX IF NOT EXISTS idx_lct_results_scope ON lct_results(staff_scope);

-- Run ledger: one row per batch execution, immutable once finalized.
CREATE TABLE IF NOT EXISTS calculation_runs (
  run_id TEXT PRIMARY KEY,
  mode TEXT NOT NULL,
  target_year TEXT,
  status TEXT NOT NULL DEFAULT 'open',
  started_at DATETIME,
  completed_at DATETIME,
  districts_processed INTEGER DEFAULT 0,
  districts_skipped INTEGER DEFAULT 0,
  calculations INTEGER DEFAULT 0,
  qa_summary TEXT,
  failure_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_calculation_runs_status ON calculation_runs(status);
`

// Schema v2 - lookup indexes for the per-district resolution loop.
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_staff_facts_lookup ON staff_facts(district_id, source_year, source_name);
CREATE INDEX IF NOT EXISTS idx_enrollment_facts_lookup ON enrollment_facts(district_id, source_year, source_name);
CREATE INDEX IF NOT EXISTS idx_bell_schedules_lookup ON bell_schedules(district_id, year, grade_level);
CREATE INDEX IF NOT EXISTS idx_lct_results_export ON lct_results(run_id, district_id, staff_scope);
`
