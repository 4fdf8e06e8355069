package s3_publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Store is the Postgres serving store: snapshot publisher, run history and readers
// ⭐ SSOT: serving.* is written and read through this store only
type Store struct {
	pool      *pgxpool.Pool
	logger    *logger.Logger
	retention int
}

// NewStore creates a serving store. retention < 1 keeps every snapshot.
func NewStore(pool *pgxpool.Pool, log *logger.Logger, retention int) *Store {
	return &Store{
		pool:      pool,
		logger:    log.WithField("module", "s3_publish"),
		retention: retention,
	}
}

// Publish writes a complete snapshot and advances the current pointer in one transaction.
// Any failure rolls back, returns ErrPublishFailure and leaves the previous snapshot current.
func (s *Store) Publish(ctx context.Context, in *contracts.PublishInput) (*contracts.Snapshot, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrPublishFailure, err)
	}

	start := time.Now()
	snapshot, err := s.publishTx(ctx, in)
	if err != nil {
		s.logger.WithError(err).WithField("snapshot_id", in.SnapshotID).Error("Publish rolled back")
		s.markFailed(in)
		return nil, fmt.Errorf("%w: %v", contracts.ErrPublishFailure, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"snapshot_id": snapshot.ID,
		"agencies":    snapshot.AgencyCount,
		"corrections": snapshot.CorrectionCount,
		"scorecards":  snapshot.ScorecardCount,
		"duration":    time.Since(start),
	}).Info("Snapshot published")

	if err := s.Prune(ctx); err != nil {
		// Retention is housekeeping; the publish already committed
		s.logger.WithError(err).Warn("Snapshot retention failed")
	}

	return snapshot, nil
}

func (s *Store) publishTx(ctx context.Context, in *contracts.PublishInput) (*contracts.Snapshot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	digests := in.SourceDigests
	if digests == nil {
		digests = map[string]string{}
	}

	snapshot := &contracts.Snapshot{
		ID:                in.SnapshotID,
		RunID:             in.RunID,
		Status:            contracts.SnapshotBuilding,
		SourceDigests:     digests,
		ScoringConfigHash: in.ScoringConfigHash,
		AgencyCount:       len(in.Corpus.Agencies),
		CorrectionCount:   len(in.Corpus.Corrections),
		ScorecardCount:    len(in.Scorecards),
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO serving.snapshots
			(snapshot_id, run_id, status, source_digests, scoring_config_hash,
			 agency_count, correction_count, scorecard_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, snapshot.ID, snapshot.RunID, string(snapshot.Status), snapshot.SourceDigests, snapshot.ScoringConfigHash,
		snapshot.AgencyCount, snapshot.CorrectionCount, snapshot.ScorecardCount,
	).Scan(&snapshot.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	for _, table := range snapshotTables(in) {
		if len(table.rows) == 0 {
			continue
		}
		n, err := tx.CopyFrom(ctx, table.identifier(), table.columns, pgx.CopyFromRows(table.rows))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", table.name, err)
		}
		if int(n) != len(table.rows) {
			return nil, fmt.Errorf("copy %s: wrote %d of %d rows", table.name, n, len(table.rows))
		}
	}

	var publishedAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE serving.snapshots
		SET status = $2, published_at = now()
		WHERE snapshot_id = $1
		RETURNING published_at
	`, snapshot.ID, string(contracts.SnapshotPublished)).Scan(&publishedAt)
	if err != nil {
		return nil, fmt.Errorf("mark snapshot published: %w", err)
	}

	// Pointer swap: readers see the old snapshot until commit
	_, err = tx.Exec(ctx, `
		INSERT INTO serving.current_snapshot (singleton, snapshot_id, updated_at)
		VALUES (TRUE, $1, now())
		ON CONFLICT (singleton) DO UPDATE
		SET snapshot_id = EXCLUDED.snapshot_id, updated_at = EXCLUDED.updated_at
	`, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("advance current snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	snapshot.Status = contracts.SnapshotPublished
	snapshot.PublishedAt = &publishedAt
	return snapshot, nil
}

// markFailed leaves a failed marker row for the history; data rows were rolled back
func (s *Store) markFailed(in *contracts.PublishInput) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	digests := in.SourceDigests
	if digests == nil {
		digests = map[string]string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO serving.snapshots (snapshot_id, run_id, status, source_digests, scoring_config_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snapshot_id) DO UPDATE SET status = EXCLUDED.status
	`, in.SnapshotID, in.RunID, string(contracts.SnapshotFailed), digests, in.ScoringConfigHash)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to record failed snapshot")
	}
}

// Prune deletes snapshots beyond the retention window. The current snapshot is never deleted.
func (s *Store) Prune(ctx context.Context) error {
	if s.retention < 1 {
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM serving.snapshots
		WHERE snapshot_id NOT IN (SELECT snapshot_id FROM serving.current_snapshot)
		  AND snapshot_id NOT IN (
			SELECT snapshot_id FROM serving.snapshots
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )
		  AND status <> $3
	`, string(contracts.SnapshotPublished), s.retention, string(contracts.SnapshotBuilding))
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if tag.RowsAffected() > 0 {
		s.logger.WithFields(map[string]interface{}{
			"deleted":   tag.RowsAffected(),
			"retention": s.retention,
		}).Info("Old snapshots pruned")
	}
	return nil
}

// CurrentSnapshot returns the snapshot the pointer resolves to, or ErrNoSnapshot
func (s *Store) CurrentSnapshot(ctx context.Context) (*contracts.Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.snapshot_id, s.run_id, s.status, s.source_digests, s.scoring_config_hash,
		       s.agency_count, s.correction_count, s.scorecard_count, s.created_at, s.published_at
		FROM serving.current_snapshot c
		JOIN serving.snapshots s ON s.snapshot_id = c.snapshot_id
	`)

	snapshot, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query current snapshot: %w", err)
	}
	return snapshot, nil
}

// Snapshots lists the retained snapshots, newest first
func (s *Store) Snapshots(ctx context.Context, limit int) ([]contracts.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_id, run_id, status, source_digests, scoring_config_hash,
		       agency_count, correction_count, scorecard_count, created_at, published_at
		FROM serving.snapshots
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []contracts.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snapshot)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*contracts.Snapshot, error) {
	var (
		snapshot contracts.Snapshot
		status   string
	)
	err := row.Scan(
		&snapshot.ID,
		&snapshot.RunID,
		&status,
		&snapshot.SourceDigests,
		&snapshot.ScoringConfigHash,
		&snapshot.AgencyCount,
		&snapshot.CorrectionCount,
		&snapshot.ScorecardCount,
		&snapshot.CreatedAt,
		&snapshot.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	snapshot.Status = contracts.SnapshotStatus(status)
	return &snapshot, nil
}

var _ contracts.Publisher = (*Store)(nil)
