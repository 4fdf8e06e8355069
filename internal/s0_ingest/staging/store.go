package staging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// Store is the DuckDB staging area between ingestion runs
// ⭐ SSOT: staging tables are written and read through this store only
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the staging database at path and migrates it.
// An empty path opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// DB exposes the underlying handle for the checksum store
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path, empty for in-memory
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the staging tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate staging: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ingest_checksums (
		source_id   VARCHAR PRIMARY KEY,
		digest      VARCHAR NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staging_agencies (
		ordinal              INTEGER NOT NULL,
		slug                 VARCHAR NOT NULL,
		name                 VARCHAR,
		short_name           VARCHAR,
		parent_slug          VARCHAR,
		total_cfr_references INTEGER NOT NULL,
		child_count          INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staging_cfr_references (
		ordinal     INTEGER NOT NULL,
		agency_slug VARCHAR NOT NULL,
		title       INTEGER NOT NULL,
		chapter     VARCHAR,
		subchapter  VARCHAR,
		part        VARCHAR,
		section     VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS staging_corrections (
		ordinal           INTEGER NOT NULL,
		ecfr_id           BIGINT NOT NULL,
		agency_slug       VARCHAR,
		cfr_reference     VARCHAR,
		title             INTEGER NOT NULL,
		chapter           VARCHAR,
		part              VARCHAR,
		section           VARCHAR,
		corrective_action VARCHAR,
		error_occurred    DATE NOT NULL,
		error_corrected   DATE,
		fr_citation       VARCHAR
	)`,
}

// ReplaceAgencies swaps the agency and reference tables in one transaction
func (s *Store) ReplaceAgencies(ctx context.Context, agencies []contracts.Agency, refs []contracts.CfrReference) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM staging_cfr_references`); err != nil {
			return fmt.Errorf("clear staging_cfr_references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM staging_agencies`); err != nil {
			return fmt.Errorf("clear staging_agencies: %w", err)
		}

		agencyStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO staging_agencies
				(ordinal, slug, name, short_name, parent_slug, total_cfr_references, child_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare agency insert: %w", err)
		}
		defer agencyStmt.Close()

		for i, a := range agencies {
			if _, err := agencyStmt.ExecContext(ctx,
				i, a.Slug, a.Name, a.ShortName, nullString(a.ParentSlug), a.TotalCFRReferences, a.ChildCount,
			); err != nil {
				return fmt.Errorf("insert agency %s: %w", a.Slug, err)
			}
		}

		refStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO staging_cfr_references
				(ordinal, agency_slug, title, chapter, subchapter, part, section)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare reference insert: %w", err)
		}
		defer refStmt.Close()

		for i, r := range refs {
			if _, err := refStmt.ExecContext(ctx,
				i, r.AgencySlug, r.Title, nullPtr(r.Chapter), nullPtr(r.Subchapter), nullPtr(r.Part), nullPtr(r.Section),
			); err != nil {
				return fmt.Errorf("insert reference for %s: %w", r.AgencySlug, err)
			}
		}

		return nil
	})
}

// ReplaceCorrections swaps the corrections table in one transaction
func (s *Store) ReplaceCorrections(ctx context.Context, corrections []contracts.Correction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM staging_corrections`); err != nil {
			return fmt.Errorf("clear staging_corrections: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO staging_corrections
				(ordinal, ecfr_id, agency_slug, cfr_reference, title, chapter, part, section,
				 corrective_action, error_occurred, error_corrected, fr_citation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare correction insert: %w", err)
		}
		defer stmt.Close()

		for i, c := range corrections {
			if _, err := stmt.ExecContext(ctx,
				i, c.ECFRID, nullString(c.AgencySlug), c.CFRReference, c.Title,
				nullPtr(c.Chapter), nullPtr(c.Part), nullPtr(c.Section),
				c.CorrectiveAction, c.ErrorOccurred, nullTime(c.ErrorCorrected), c.FRCitation,
			); err != nil {
				return fmt.Errorf("insert correction %d: %w", c.ECFRID, err)
			}
		}

		return nil
	})
}

// LoadAgencies reads the staged agencies and references in source order
func (s *Store) LoadAgencies(ctx context.Context) ([]contracts.Agency, []contracts.CfrReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, name, short_name, parent_slug, total_cfr_references, child_count
		FROM staging_agencies
		ORDER BY ordinal`)
	if err != nil {
		return nil, nil, fmt.Errorf("query staging_agencies: %w", err)
	}

	var agencies []contracts.Agency
	for rows.Next() {
		var (
			a                       contracts.Agency
			name, short, parentSlug sql.NullString
		)
		if err := rows.Scan(&a.Slug, &name, &short, &parentSlug, &a.TotalCFRReferences, &a.ChildCount); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan staging_agencies: %w", err)
		}
		a.Name, a.ShortName, a.ParentSlug = name.String, short.String, parentSlug.String
		agencies = append(agencies, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT agency_slug, title, chapter, subchapter, part, section
		FROM staging_cfr_references
		ORDER BY ordinal`)
	if err != nil {
		return nil, nil, fmt.Errorf("query staging_cfr_references: %w", err)
	}
	defer rows.Close()

	var refs []contracts.CfrReference
	for rows.Next() {
		var (
			r                                  contracts.CfrReference
			chapter, subchapter, part, section sql.NullString
		)
		if err := rows.Scan(&r.AgencySlug, &r.Title, &chapter, &subchapter, &part, &section); err != nil {
			return nil, nil, fmt.Errorf("scan staging_cfr_references: %w", err)
		}
		r.Chapter, r.Subchapter, r.Part, r.Section = ptr(chapter), ptr(subchapter), ptr(part), ptr(section)
		refs = append(refs, r)
	}

	return agencies, refs, rows.Err()
}

// LoadCorrections reads the staged corrections in source order
func (s *Store) LoadCorrections(ctx context.Context) ([]contracts.Correction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ecfr_id, agency_slug, cfr_reference, title, chapter, part, section,
		       corrective_action, error_occurred, error_corrected, fr_citation
		FROM staging_corrections
		ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query staging_corrections: %w", err)
	}
	defer rows.Close()

	var out []contracts.Correction
	for rows.Next() {
		var (
			c                             contracts.Correction
			agency, ref, action, citation sql.NullString
			chapter, part, section        sql.NullString
			corrected                     sql.NullTime
		)
		if err := rows.Scan(&c.ECFRID, &agency, &ref, &c.Title, &chapter, &part, &section,
			&action, &c.ErrorOccurred, &corrected, &citation); err != nil {
			return nil, fmt.Errorf("scan staging_corrections: %w", err)
		}
		c.AgencySlug, c.CFRReference = agency.String, ref.String
		c.CorrectiveAction, c.FRCitation = action.String, citation.String
		c.Chapter, c.Part, c.Section = ptr(chapter), ptr(part), ptr(section)
		c.ErrorOccurred = c.ErrorOccurred.UTC()
		if corrected.Valid {
			t := corrected.Time.UTC()
			c.ErrorCorrected = &t
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// Counts returns the row count of every staging table
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"staging_agencies", "staging_cfr_references", "staging_corrections"} {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging tx: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

var _ contracts.StagingStore = (*Store)(nil)
