package commands

import (
	"context"
	"fmt"

	"github.com/wonny/ecfr-scorecard/internal/external/ecfr"
	"github.com/wonny/ecfr-scorecard/internal/pipeline"
	"github.com/wonny/ecfr-scorecard/internal/s0_ingest"
	"github.com/wonny/ecfr-scorecard/internal/s0_ingest/checksum"
	"github.com/wonny/ecfr-scorecard/internal/s0_ingest/staging"
	"github.com/wonny/ecfr-scorecard/internal/s1_metrics"
	"github.com/wonny/ecfr-scorecard/internal/s2_scorecard"
	"github.com/wonny/ecfr-scorecard/internal/s3_publish"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
	"github.com/wonny/ecfr-scorecard/pkg/config"
	"github.com/wonny/ecfr-scorecard/pkg/database"
	"github.com/wonny/ecfr-scorecard/pkg/httputil"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
	"github.com/wonny/ecfr-scorecard/pkg/redis"
)

// app holds the shared dependencies of every command
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	redis       *redis.Client
	store       *s3_publish.Store
	scoring     *scoringconfig.Config
	scoringHash string
}

// newApp loads config and opens the serving store and Redis
// ⭐ SSOT: command dependencies are wired here only
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	path := cfg.Pipeline.ScoringConfigPath
	if scoringConfig != "" {
		path = scoringConfig
	}
	scoring, _, err := scoringconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring config: %w", err)
	}
	for _, w := range scoringconfig.Warn(scoring) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	hash, err := scoringconfig.Hash(scoring)
	if err != nil {
		return nil, fmt.Errorf("failed to hash scoring config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rc, err := redis.New(context.Background(), cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       rc,
		store:       s3_publish.NewStore(db.Pool, log, cfg.Pipeline.SnapshotRetention),
		scoring:     scoring,
		scoringHash: hash,
	}, nil
}

// Close releases every connection opened by newApp
func (a *app) Close() {
	_ = a.redis.Close()
	a.db.Close()
}

// openStaging opens the DuckDB staging lake
func (a *app) openStaging(ctx context.Context) (*staging.Store, error) {
	st, err := staging.Open(ctx, a.cfg.Staging.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging store: %w", err)
	}
	return st, nil
}

// orchestrator builds the full S0 → S3 pipeline on top of an open staging store
func (a *app) orchestrator(st *staging.Store, force bool) (*pipeline.Orchestrator, error) {
	client := httputil.New(a.cfg, a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, "scorecard"), redis.ECFRRateLimit(a.cfg.ECFR.RateLimit))

	ingestor := s0_ingest.NewIngestor(
		ecfr.NewClient(client, a.log),
		checksum.NewDuckDBStore(st.DB()),
		st,
		a.log,
		s0_ingest.Config{
			AgenciesSource:    a.cfg.ECFR.AgenciesSource,
			CorrectionsSource: a.cfg.ECFR.CorrectionsSource,
			Workers:           a.cfg.Pipeline.Workers,
		},
	).WithForce(force)

	ranker, err := s2_scorecard.NewRanker(a.scoring, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranker: %w", err)
	}

	return pipeline.NewOrchestrator(
		ingestor,
		s1_metrics.NewEngine(a.scoring, a.cfg.Pipeline.Workers, a.log),
		ranker,
		a.store,
		a.db,
		a.scoringHash,
		a.log,
	), nil
}
