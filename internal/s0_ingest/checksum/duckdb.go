package checksum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DuckDBStore persists digests in the staging database's ingest_checksums table
// ⭐ SSOT: checksum state lives next to the staging tables it gates
type DuckDBStore struct {
	gate
}

// NewDuckDBStore wraps an open staging database.
// The ingest_checksums table is created by staging.Store.Migrate.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{gate: gate{b: &duckdbBackend{db: db}, now: time.Now}}
}

type duckdbBackend struct {
	db *sql.DB
}

func (d *duckdbBackend) get(ctx context.Context, sourceID string) (string, bool, error) {
	var digest string
	err := d.db.QueryRowContext(ctx,
		`SELECT digest FROM ingest_checksums WHERE source_id = ?`, sourceID,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query ingest_checksums: %w", err)
	}
	return digest, true, nil
}

func (d *duckdbBackend) put(ctx context.Context, sourceID, digest string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO ingest_checksums (source_id, digest, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			digest = excluded.digest,
			recorded_at = excluded.recorded_at
	`, sourceID, digest, at)
	if err != nil {
		return fmt.Errorf("upsert ingest_checksums: %w", err)
	}
	return nil
}

func (d *duckdbBackend) all(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT source_id, digest FROM ingest_checksums ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("query ingest_checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, digest string
		if err := rows.Scan(&id, &digest); err != nil {
			return nil, fmt.Errorf("scan ingest_checksums: %w", err)
		}
		out[id] = digest
	}
	return out, rows.Err()
}
