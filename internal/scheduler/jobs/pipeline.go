package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/pipeline"
	"github.com/wonny/ecfr-scorecard/internal/scheduler"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*contracts.RunRecord, error)
}

// PipelineJob runs the full S0 → S3 pipeline on a schedule
// ⭐ SSOT: the scheduled pipeline run is defined by this job only
type PipelineJob struct {
	runner   Runner
	schedule string
	timeout  time.Duration
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job. timeout <= 0 means no deadline.
func NewPipelineJob(runner Runner, schedule string, timeout time.Duration, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		logger:   log,
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "scorecard_pipeline"
}

// Schedule returns the configured cron expression
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run. A run already holding the lock is a skip, not a failure.
func (j *PipelineJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	run, err := j.runner.Run(ctx, pipeline.RunConfig{Trigger: "scheduler"})
	if errors.Is(err, contracts.ErrRunInProgress) {
		return fmt.Errorf("%w: %v", scheduler.ErrSkipped, err)
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      run.RunID,
		"status":      run.Status,
		"snapshot_id": run.SnapshotID,
	}).Info("Scheduled pipeline run finished")

	return nil
}
