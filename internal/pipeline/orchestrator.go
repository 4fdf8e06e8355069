package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// LockKey is the Postgres advisory lock key held for the duration of a run
const LockKey int64 = 0x65636672 // "ecfr"

// Locker grants the single-run lock
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (release func(), acquired bool, err error)
}

// Store is the serving store as seen by the orchestrator
type Store interface {
	contracts.Publisher
	StartRun(ctx context.Context, run *contracts.RunRecord) error
	FinishRun(ctx context.Context, run *contracts.RunRecord) error
}

// RunConfig holds configuration for one pipeline run
type RunConfig struct {
	Trigger string // cli, scheduler
	// Force publishes even when every source digest and the scoring config are unchanged
	Force bool
}

// Orchestrator coordinates the S0 → S3 pipeline
// ⭐ SSOT: pipeline coordination happens here only
type Orchestrator struct {
	ingestor contracts.Ingestor
	engine   contracts.MetricsEngine
	ranker   contracts.ScorecardRanker
	store    Store
	locker   Locker

	scoringHash string
	logger      *logger.Logger
	now         func() time.Time
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	ingestor contracts.Ingestor,
	engine contracts.MetricsEngine,
	ranker contracts.ScorecardRanker,
	store Store,
	locker Locker,
	scoringHash string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		ingestor:    ingestor,
		engine:      engine,
		ranker:      ranker,
		store:       store,
		locker:      locker,
		scoringHash: scoringHash,
		logger:      log.WithField("module", "pipeline"),
		now:         time.Now,
	}
}

// Run executes S0 → S1 → S2 → S3 under the advisory lock.
// A failed run is recorded with its error and leaves the current snapshot untouched.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*contracts.RunRecord, error) {
	release, acquired, err := o.locker.TryAdvisoryLock(ctx, LockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !acquired {
		return nil, contracts.ErrRunInProgress
	}
	defer release()

	if cfg.Trigger == "" {
		cfg.Trigger = "cli"
	}

	run := &contracts.RunRecord{
		RunID:     uuid.NewString(),
		Status:    contracts.RunRunning,
		Trigger:   cfg.Trigger,
		StartedAt: o.now(),
	}
	log := o.logger.WithRun(run.RunID)

	if err := o.store.StartRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"trigger": cfg.Trigger,
		"force":   cfg.Force,
	}).Info("Starting pipeline run")

	runErr := o.execute(ctx, cfg, run, log)
	o.finish(run, runErr, log)

	return run, runErr
}

func (o *Orchestrator) execute(ctx context.Context, cfg RunConfig, run *contracts.RunRecord, log *logger.Logger) error {
	// S0: Ingest
	var (
		corpus *contracts.Corpus
		report *contracts.IngestReport
	)
	err := o.stage(run, contracts.StageIngest, log, func() (int, int, map[string]interface{}, error) {
		var err error
		corpus, report, err = o.ingestor.Ingest(ctx)
		if err != nil {
			return 0, 0, nil, err
		}
		run.Ingest = report
		return len(report.Sources), len(corpus.Agencies), map[string]interface{}{
			"corrections": len(corpus.Corrections),
			"dropped":     report.Dropped(),
			"changed":     report.Changed(),
		}, nil
	})
	if err != nil {
		return err
	}

	if !cfg.Force && !report.Changed() {
		unchanged, err := o.isUnchanged(ctx, report)
		if err != nil {
			return err
		}
		if unchanged {
			log.Info("Sources and scoring config unchanged, skipping publish")
			run.Status = contracts.RunUnchanged
			return nil
		}
	}

	// S1: Metrics
	var metrics *contracts.MetricSet
	err = o.stage(run, contracts.StageMetrics, log, func() (int, int, map[string]interface{}, error) {
		var err error
		metrics, err = o.engine.Compute(ctx, corpus)
		if err != nil {
			return 0, 0, nil, err
		}
		return len(corpus.Agencies), len(metrics.Metrics), map[string]interface{}{
			"years":  len(metrics.Trends.Yearly),
			"titles": len(metrics.Trends.ByTitle),
		}, nil
	})
	if err != nil {
		return err
	}

	// S2: Scorecard
	var cards []contracts.Scorecard
	err = o.stage(run, contracts.StageScorecard, log, func() (int, int, map[string]interface{}, error) {
		var err error
		cards, err = o.ranker.Rank(ctx, metrics.Metrics)
		if err != nil {
			return 0, 0, nil, err
		}
		return len(metrics.Metrics), len(cards), nil, nil
	})
	if err != nil {
		return err
	}

	// S3: Publish
	return o.stage(run, contracts.StagePublish, log, func() (int, int, map[string]interface{}, error) {
		snapshot, err := o.store.Publish(ctx, &contracts.PublishInput{
			SnapshotID:        uuid.NewString(),
			RunID:             run.RunID,
			Corpus:            corpus,
			Metrics:           metrics,
			Scorecards:        cards,
			SourceDigests:     sourceDigests(report),
			ScoringConfigHash: o.scoringHash,
		})
		if err != nil {
			return 0, 0, nil, err
		}
		run.SnapshotID = snapshot.ID
		run.Status = contracts.RunSucceeded
		return len(cards), snapshot.ScorecardCount, map[string]interface{}{
			"snapshot_id": snapshot.ID,
		}, nil
	})
}

// isUnchanged reports whether the current snapshot was built from the same source digests
// and the same scoring config. Digests are recorded at staging time, so a run whose publish
// failed leaves staged data newer than the current snapshot.
func (o *Orchestrator) isUnchanged(ctx context.Context, report *contracts.IngestReport) (bool, error) {
	current, err := o.store.CurrentSnapshot(ctx)
	if errors.Is(err, contracts.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read current snapshot: %w", err)
	}
	if current.ScoringConfigHash != o.scoringHash {
		return false, nil
	}
	return maps.Equal(current.SourceDigests, sourceDigests(report)), nil
}

// stage runs one stage and appends its PipelineResult
func (o *Orchestrator) stage(
	run *contracts.RunRecord,
	stage contracts.Stage,
	log *logger.Logger,
	fn func() (input, output int, meta map[string]interface{}, err error),
) error {
	log.Infof("Running %s: %s", stage.ShortName(), stage.Description())
	start := o.now()

	input, output, meta, err := fn()
	result := contracts.PipelineResult{
		Stage:       stage,
		Success:     err == nil,
		InputCount:  input,
		OutputCount: output,
		Duration:    o.now().Sub(start).Milliseconds(),
		Metadata:    meta,
	}
	if err != nil {
		result.Error = err.Error()
	}
	run.Results = append(run.Results, result)

	if err != nil {
		return fmt.Errorf("%s failed: %w", stage.ShortName(), err)
	}

	log.WithFields(map[string]interface{}{
		"stage":  stage.String(),
		"input":  input,
		"output": output,
		"ms":     result.Duration,
	}).Info("Stage completed")
	return nil
}

// finish stamps the run outcome and stores it on a fresh context so a cancelled run is still recorded
func (o *Orchestrator) finish(run *contracts.RunRecord, runErr error, log *logger.Logger) {
	finished := o.now()
	run.FinishedAt = &finished

	if runErr != nil {
		run.Status = contracts.RunFailed
		run.Error = runErr.Error()
		log.WithError(runErr).Error("Pipeline run failed")
	} else {
		log.WithFields(map[string]interface{}{
			"status":      run.Status,
			"snapshot_id": run.SnapshotID,
			"duration":    finished.Sub(run.StartedAt).Seconds(),
		}).Info("Pipeline run completed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.store.FinishRun(ctx, run); err != nil {
		log.WithError(err).Warn("Failed to record run outcome")
	}
}

func sourceDigests(report *contracts.IngestReport) map[string]string {
	digests := make(map[string]string, len(report.Sources))
	for _, s := range report.Sources {
		digests[s.SourceID] = s.Digest
	}
	return digests
}
