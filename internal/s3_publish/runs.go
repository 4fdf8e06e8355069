package s3_publish

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// StartRun inserts a running row into serving.pipeline_runs
func (s *Store) StartRun(ctx context.Context, run *contracts.RunRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO serving.pipeline_runs (run_id, status, trigger, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.RunID, string(run.Status), run.Trigger, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	return nil
}

// FinishRun stores the final status, stage results and ingest report of a run
func (s *Store) FinishRun(ctx context.Context, run *contracts.RunRecord) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE serving.pipeline_runs
		SET status = $2, snapshot_id = $3, finished_at = $4, error = $5, results = $6, ingest = $7
		WHERE run_id = $1
	`, run.RunID, string(run.Status), nullable(run.SnapshotID), finished, nullable(run.Error), run.Results, run.Ingest)
	if err != nil {
		return fmt.Errorf("update pipeline run: %w", err)
	}
	return nil
}

// Runs returns the most recent pipeline runs, newest first
func (s *Store) Runs(ctx context.Context, limit int) ([]contracts.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, COALESCE(snapshot_id, ''), status, trigger, started_at, finished_at,
		       COALESCE(error, ''), results, ingest
		FROM serving.pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.RunRecord, error) {
		var (
			run    contracts.RunRecord
			status string
		)
		err := row.Scan(&run.RunID, &run.SnapshotID, &status, &run.Trigger, &run.StartedAt, &run.FinishedAt,
			&run.Error, &run.Results, &run.Ingest)
		run.Status = contracts.RunStatus(status)
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan pipeline runs: %w", err)
	}
	return runs, nil
}
