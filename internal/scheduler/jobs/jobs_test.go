package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/pipeline"
	"github.com/wonny/ecfr-scorecard/internal/scheduler"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

type fakeRunner struct {
	err         error
	cfg         pipeline.RunConfig
	hadDeadline bool
}

func (r *fakeRunner) Run(ctx context.Context, cfg pipeline.RunConfig) (*contracts.RunRecord, error) {
	r.cfg = cfg
	_, r.hadDeadline = ctx.Deadline()
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.RunRecord{RunID: "run-1", Status: contracts.RunSucceeded}, nil
}

func TestPipelineJob(t *testing.T) {
	runner := &fakeRunner{}
	job := NewPipelineJob(runner, "0 0 6 * * *", time.Minute, logger.Nop())

	assert.Equal(t, "scorecard_pipeline", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "scheduler", runner.cfg.Trigger)
	assert.False(t, runner.cfg.Force)
	assert.True(t, runner.hadDeadline)
}

func TestPipelineJob_LockHeldIsSkip(t *testing.T) {
	job := NewPipelineJob(&fakeRunner{err: contracts.ErrRunInProgress}, "@daily", 0, logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, scheduler.ErrSkipped)
}

func TestPipelineJob_FailurePropagates(t *testing.T) {
	job := NewPipelineJob(&fakeRunner{err: contracts.ErrPublishFailure}, "@daily", 0, logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrPublishFailure)
	assert.NotErrorIs(t, err, scheduler.ErrSkipped)
}

type fakePruner struct {
	calls int
	err   error
}

func (p *fakePruner) Prune(context.Context) error {
	p.calls++
	return p.err
}

func TestSnapshotRetentionJob(t *testing.T) {
	pruner := &fakePruner{}
	job := NewSnapshotRetentionJob(pruner, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, "snapshot_retention", job.Name())

	pruner.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
