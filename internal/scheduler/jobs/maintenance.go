package jobs

import (
	"context"

	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Pruner deletes snapshots beyond the retention window
type Pruner interface {
	Prune(ctx context.Context) error
}

// SnapshotRetentionJob enforces snapshot retention independently of publishes
type SnapshotRetentionJob struct {
	pruner Pruner
	logger *logger.Logger
}

// NewSnapshotRetentionJob creates a new retention job
func NewSnapshotRetentionJob(pruner Pruner, log *logger.Logger) *SnapshotRetentionJob {
	return &SnapshotRetentionJob{
		pruner: pruner,
		logger: log,
	}
}

// Name returns the job name
func (j *SnapshotRetentionJob) Name() string {
	return "snapshot_retention"
}

// Schedule returns the cron schedule (hourly, on the half hour)
func (j *SnapshotRetentionJob) Schedule() string {
	return "0 30 * * * *"
}

// Run executes the retention pass
func (j *SnapshotRetentionJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled snapshot retention")
	return j.pruner.Prune(ctx)
}
