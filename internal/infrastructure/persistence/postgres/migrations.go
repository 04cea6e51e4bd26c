package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: INSTITUTIONS AND FIELDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create institution and field-of-education reference tables
-- Version: 001

CREATE TABLE IF NOT EXISTS institutions (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    state VARCHAR(10) NOT NULL DEFAULT '',
    provider_type VARCHAR(50) NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_institutions_name ON institutions(name);

CREATE TABLE IF NOT EXISTS fields_of_education (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL
);
`

const migration001Down = `
DROP TABLE IF EXISTS fields_of_education;
DROP TABLE IF EXISTS institutions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STATISTICAL TIME SERIES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create the ETL-loaded statistical time series
-- Version: 002
-- Rates are stored only when measured; absence is the row not existing,
-- never a zero.

CREATE TABLE IF NOT EXISTS rate_observations (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    year INTEGER NOT NULL,
    student_type VARCHAR(20) NOT NULL,
    measure VARCHAR(20) NOT NULL,
    rate DOUBLE PRECISION NOT NULL,

    PRIMARY KEY (institution_id, year, student_type, measure),
    CONSTRAINT valid_student_type CHECK (student_type IN ('domestic', 'overseas', 'all')),
    CONSTRAINT valid_measure CHECK (measure IN ('attrition', 'retention', 'success'))
);

CREATE INDEX IF NOT EXISTS idx_rate_obs_year ON rate_observations(year, student_type, measure);

CREATE TABLE IF NOT EXISTS completion_cohorts (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    cohort_start INTEGER NOT NULL,
    cohort_end INTEGER NOT NULL,
    duration_years INTEGER NOT NULL,
    completed_pct DOUBLE PRECISION NOT NULL,

    -- Breakdown columns are published for the 4-year window only.
    still_enrolled_pct DOUBLE PRECISION,
    dropped_out_pct DOUBLE PRECISION,
    never_returned_pct DOUBLE PRECISION,

    PRIMARY KEY (institution_id, duration_years, cohort_start)
);

CREATE INDEX IF NOT EXISTS idx_completion_duration_start
    ON completion_cohorts(duration_years, cohort_start);

-- Enrolment snapshots may duplicate a cell across collection releases;
-- readers take MAX per (institution, field, year). The commencing flag
-- marks new-student rows; every headcount reader uses the
-- non-commencing series.
CREATE TABLE IF NOT EXISTS field_enrolments (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    field_id BIGINT NOT NULL REFERENCES fields_of_education(id),
    year INTEGER NOT NULL,
    commencing BOOLEAN NOT NULL DEFAULT FALSE,
    headcount BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_field_enrolments_cell
    ON field_enrolments(institution_id, field_id, year);
CREATE INDEX IF NOT EXISTS idx_field_enrolments_field_year
    ON field_enrolments(field_id, year);

CREATE TABLE IF NOT EXISTS field_completions (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    field_id BIGINT NOT NULL REFERENCES fields_of_education(id),
    year INTEGER NOT NULL,
    headcount BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_field_completions_cell
    ON field_completions(institution_id, field_id, year);
CREATE INDEX IF NOT EXISTS idx_field_completions_field_year
    ON field_completions(field_id, year);

CREATE TABLE IF NOT EXISTS course_level_mix (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    year INTEGER NOT NULL,
    measure VARCHAR(20) NOT NULL,
    postgrad_research BIGINT NOT NULL DEFAULT 0,
    postgrad_coursework BIGINT NOT NULL DEFAULT 0,
    bachelor BIGINT NOT NULL DEFAULT 0,
    sub_bachelor BIGINT NOT NULL DEFAULT 0,
    total BIGINT NOT NULL DEFAULT 0,

    PRIMARY KEY (institution_id, year, measure),
    CONSTRAINT valid_mix_measure CHECK (measure IN ('enrolment', 'completion'))
);

CREATE TABLE IF NOT EXISTS staff_ratios (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    year INTEGER NOT NULL,
    academic_ratio DOUBLE PRECISION,
    non_academic_ratio DOUBLE PRECISION,
    eftsl DOUBLE PRECISION,
    academic_fte DOUBLE PRECISION,
    non_academic_fte DOUBLE PRECISION,

    PRIMARY KEY (institution_id, year)
);

CREATE TABLE IF NOT EXISTS equity_rates (
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    year INTEGER NOT NULL,
    group_code VARCHAR(20) NOT NULL,
    measure VARCHAR(20) NOT NULL,
    rate DOUBLE PRECISION NOT NULL,

    PRIMARY KEY (institution_id, year, group_code, measure),
    CONSTRAINT valid_equity_measure CHECK (measure IN ('retention', 'success', 'attainment'))
);

CREATE INDEX IF NOT EXISTS idx_equity_year ON equity_rates(year, group_code, measure);
`

const migration002Down = `
DROP TABLE IF EXISTS equity_rates;
DROP TABLE IF EXISTS staff_ratios;
DROP TABLE IF EXISTS course_level_mix;
DROP TABLE IF EXISTS field_completions;
DROP TABLE IF EXISTS field_enrolments;
DROP TABLE IF EXISTS completion_cohorts;
DROP TABLE IF EXISTS rate_observations;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: COURSE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create the admissions-transparency course table
-- Version: 003
-- ATAR, rank and percentage columns stay TEXT: the source mixes numbers
-- with sentinel codes (NC, NP, <5) and the engines own the parsing.

CREATE TABLE IF NOT EXISTS courses (
    id BIGSERIAL PRIMARY KEY,
    institution_id BIGINT NOT NULL REFERENCES institutions(id),
    course_code VARCHAR(20) NOT NULL,
    title TEXT NOT NULL,
    course_level VARCHAR(10) NOT NULL DEFAULT '',
    fee_type VARCHAR(10) NOT NULL DEFAULT '',
    campus_code VARCHAR(20) NOT NULL DEFAULT '',
    campus_name TEXT NOT NULL DEFAULT '',
    status VARCHAR(5) NOT NULL DEFAULT '',
    level VARCHAR(20) NOT NULL DEFAULT '',
    areas_of_study TEXT NOT NULL DEFAULT '',

    atar_lowest TEXT,
    atar_median TEXT,
    atar_highest TEXT,
    atar_year INTEGER NOT NULL DEFAULT 0,

    selection_rank_lowest TEXT,
    selection_rank_median TEXT,

    duration TEXT,
    mode_of_attendance TEXT,
    start_months TEXT,
    further_info_url TEXT,

    profile_year INTEGER NOT NULL DEFAULT 0,
    total_students TEXT,
    pct_atar_based TEXT,
    pct_higher_ed TEXT,
    pct_vet TEXT,
    pct_work_life TEXT,
    pct_international TEXT
);

CREATE INDEX IF NOT EXISTS idx_courses_institution ON courses(institution_id, status);
CREATE INDEX IF NOT EXISTS idx_courses_code ON courses(course_code);
CREATE INDEX IF NOT EXISTS idx_courses_level ON courses(course_level, status);
`

const migration003Down = `
DROP TABLE IF EXISTS courses;
`
