package s3_publish

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the serving schema, the snapshot-keyed tables and the
// current-snapshot views. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range servingSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate serving (statement %d): %w", i+1, err)
		}
	}
	return nil
}

// Ids are TEXT so the pgx COPY path takes plain Go strings.
var servingSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS serving`,

	`CREATE TABLE IF NOT EXISTS serving.snapshots (
		snapshot_id         TEXT PRIMARY KEY,
		run_id              TEXT NOT NULL,
		status              TEXT NOT NULL,
		source_digests      JSONB NOT NULL DEFAULT '{}'::jsonb,
		scoring_config_hash TEXT NOT NULL DEFAULT '',
		agency_count        INTEGER NOT NULL DEFAULT 0,
		correction_count    INTEGER NOT NULL DEFAULT 0,
		scorecard_count     INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at        TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS serving.current_snapshot (
		singleton   BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		snapshot_id TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS serving.pipeline_runs (
		run_id      TEXT PRIMARY KEY,
		snapshot_id TEXT,
		status      TEXT NOT NULL,
		trigger     TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		error       TEXT,
		results     JSONB,
		ingest      JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON serving.pipeline_runs (started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_agencies (
		snapshot_id          TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		slug                 TEXT NOT NULL,
		name                 TEXT NOT NULL,
		short_name           TEXT,
		parent_slug          TEXT,
		total_cfr_references INTEGER NOT NULL,
		child_count          INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, slug)
	)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_cfr_references (
		snapshot_id TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		agency_slug TEXT NOT NULL,
		title       INTEGER NOT NULL,
		chapter     TEXT,
		subchapter  TEXT,
		part        TEXT,
		section     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_refs_agency ON serving.snapshot_cfr_references (snapshot_id, agency_slug)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_corrections (
		snapshot_id       TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		ecfr_id           BIGINT NOT NULL,
		agency_slug       TEXT NOT NULL,
		cfr_reference     TEXT,
		title             INTEGER NOT NULL,
		chapter           TEXT,
		part              TEXT,
		section           TEXT,
		corrective_action TEXT,
		error_occurred    DATE NOT NULL,
		error_corrected   DATE,
		fr_citation       TEXT,
		year              INTEGER NOT NULL,
		lag_days          INTEGER CHECK (lag_days >= 0),
		PRIMARY KEY (snapshot_id, ecfr_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_corrections_agency ON serving.snapshot_corrections (snapshot_id, agency_slug)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_corrections_year ON serving.snapshot_corrections (snapshot_id, year)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_agency_metrics (
		snapshot_id             TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		agency_slug             TEXT NOT NULL,
		word_count_estimate     BIGINT NOT NULL,
		cfr_reference_count     INTEGER NOT NULL,
		total_corrections       INTEGER NOT NULL,
		rvi                     DOUBLE PRECISION,
		avg_correction_lag_days DOUBLE PRECISION,
		years_with_corrections  INTEGER NOT NULL,
		first_correction_year   INTEGER,
		last_correction_year    INTEGER,
		PRIMARY KEY (snapshot_id, agency_slug)
	)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_scorecards (
		snapshot_id         TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		agency_slug         TEXT NOT NULL,
		corrections_rank    INTEGER NOT NULL,
		rvi_rank            INTEGER NOT NULL,
		size_rank           INTEGER NOT NULL,
		responsiveness_rank INTEGER NOT NULL,
		composite_score     NUMERIC(5,2) NOT NULL,
		activity_grade      CHAR(1) NOT NULL,
		PRIMARY KEY (snapshot_id, agency_slug)
	)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_trends_yearly (
		snapshot_id      TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		year             INTEGER NOT NULL,
		correction_count INTEGER NOT NULL,
		unique_titles    INTEGER NOT NULL,
		avg_lag_days     DOUBLE PRECISION,
		min_lag_days     INTEGER,
		max_lag_days     INTEGER,
		PRIMARY KEY (snapshot_id, year)
	)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_trends_by_title (
		snapshot_id      TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		title            INTEGER NOT NULL,
		correction_count INTEGER NOT NULL,
		years_active     INTEGER NOT NULL,
		first_year       INTEGER NOT NULL,
		last_year        INTEGER NOT NULL,
		avg_lag_days     DOUBLE PRECISION,
		PRIMARY KEY (snapshot_id, title)
	)`,

	`CREATE TABLE IF NOT EXISTS serving.snapshot_time_series (
		snapshot_id      TEXT NOT NULL REFERENCES serving.snapshots (snapshot_id) ON DELETE CASCADE,
		year             INTEGER NOT NULL,
		month            INTEGER NOT NULL,
		correction_count INTEGER NOT NULL,
		avg_lag_days     DOUBLE PRECISION,
		PRIMARY KEY (snapshot_id, year, month)
	)`,

	// Views read through the current pointer
	`CREATE OR REPLACE VIEW serving.agencies AS
		SELECT t.slug, t.name, t.short_name, t.parent_slug, t.total_cfr_references, t.child_count
		FROM serving.snapshot_agencies t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.cfr_references AS
		SELECT t.agency_slug, t.title, t.chapter, t.subchapter, t.part, t.section
		FROM serving.snapshot_cfr_references t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.corrections AS
		SELECT t.ecfr_id, t.agency_slug, t.cfr_reference, t.title, t.chapter, t.part, t.section,
			t.corrective_action, t.error_occurred, t.error_corrected, t.fr_citation, t.year, t.lag_days
		FROM serving.snapshot_corrections t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.agency_metrics AS
		SELECT t.agency_slug, t.word_count_estimate, t.cfr_reference_count, t.total_corrections, t.rvi,
			t.avg_correction_lag_days, t.years_with_corrections, t.first_correction_year, t.last_correction_year
		FROM serving.snapshot_agency_metrics t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.scorecard AS
		SELECT t.agency_slug, t.corrections_rank, t.rvi_rank, t.size_rank, t.responsiveness_rank,
			t.composite_score, t.activity_grade
		FROM serving.snapshot_scorecards t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.correction_trends_yearly AS
		SELECT t.year, t.correction_count, t.unique_titles, t.avg_lag_days, t.min_lag_days, t.max_lag_days
		FROM serving.snapshot_trends_yearly t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.correction_trends_by_title AS
		SELECT t.title, t.correction_count, t.years_active, t.first_year, t.last_year, t.avg_lag_days
		FROM serving.snapshot_trends_by_title t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
	`CREATE OR REPLACE VIEW serving.correction_time_series AS
		SELECT t.year, t.month, t.correction_count, t.avg_lag_days
		FROM serving.snapshot_time_series t
		JOIN serving.current_snapshot c ON c.snapshot_id = t.snapshot_id`,
}
