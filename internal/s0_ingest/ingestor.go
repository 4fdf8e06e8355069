package s0_ingest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/external/ecfr"
	"github.com/wonny/ecfr-scorecard/internal/s0_ingest/integrity"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Source ids double as checksum keys
const (
	SourceAgencies    = "agencies"
	SourceCorrections = "corrections"
)

// Fetcher returns the raw bytes of a source location
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Config holds ingestor configuration
type Config struct {
	AgenciesSource    string
	CorrectionsSource string
	Workers           int  // concurrent source fetches
	Force             bool // re-stage even when the digest is unchanged
}

// Ingestor runs S0: fetch, checksum gate, stage, validate
// ⭐ SSOT: corpus ingestion is orchestrated here only
type Ingestor struct {
	fetcher   Fetcher
	checksums contracts.ChecksumStore
	staging   contracts.StagingStore
	validator *integrity.Validator
	logger    *logger.Logger
	cfg       Config
}

// NewIngestor creates a new Ingestor instance
func NewIngestor(
	fetcher Fetcher,
	checksums contracts.ChecksumStore,
	staging contracts.StagingStore,
	log *logger.Logger,
	cfg Config,
) *Ingestor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Ingestor{
		fetcher:   fetcher,
		checksums: checksums,
		staging:   staging,
		validator: integrity.NewValidator(log),
		logger:    log.WithField("module", "ingestor"),
		cfg:       cfg,
	}
}

// WithForce returns a copy that re-stages every source regardless of digest
func (i *Ingestor) WithForce(force bool) *Ingestor {
	cp := *i
	cp.cfg.Force = force
	return &cp
}

// prepared is a fetched, hashed and parsed source ready to be staged
type prepared struct {
	result contracts.SourceResult
	stage  func(ctx context.Context) error
}

// Ingest fetches every source, stages the changed ones and assembles the corpus.
// All sources are fetched, hashed and parsed before the first staging write,
// so an unreadable source aborts the run with staging untouched.
func (i *Ingestor) Ingest(ctx context.Context) (*contracts.Corpus, *contracts.IngestReport, error) {
	start := time.Now()

	sources := []struct {
		id       string
		location string
	}{
		{SourceAgencies, i.cfg.AgenciesSource},
		{SourceCorrections, i.cfg.CorrectionsSource},
	}

	// 1. Fetch + digest + parse, in parallel
	prep := make([]prepared, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)

	for idx, src := range sources {
		g.Go(func() error {
			p, err := i.prepare(gctx, src.id, src.location)
			if err != nil {
				return err
			}
			prep[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// 2. Stage changed sources, then record their digests
	report := &contracts.IngestReport{}
	for _, p := range prep {
		if p.stage != nil {
			if err := p.stage(ctx); err != nil {
				return nil, nil, fmt.Errorf("stage %s: %w", p.result.SourceID, err)
			}
			if err := i.checksums.Record(ctx, p.result.SourceID, p.result.Digest); err != nil {
				return nil, nil, err
			}
		}
		report.Sources = append(report.Sources, p.result)

		i.logger.WithFields(map[string]interface{}{
			"source":   p.result.SourceID,
			"ingested": p.result.Ingested,
			"rows":     p.result.Rows,
			"digest":   p.result.Digest,
		}).Info("Source processed")
	}

	// 3. Assemble from staging and validate
	agencies, refs, err := i.staging.LoadAgencies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load staged agencies: %w", err)
	}
	corrections, err := i.staging.LoadCorrections(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load staged corrections: %w", err)
	}

	res := i.validator.Validate(agencies, refs, corrections)
	res.Apply(report)

	i.logger.WithFields(map[string]interface{}{
		"agencies":    report.Agencies,
		"references":  report.CfrReferences,
		"corrections": report.Corrections,
		"dropped":     report.Dropped(),
		"changed":     report.Changed(),
		"duration":    time.Since(start),
	}).Info("Ingestion completed")

	return res.Corpus, report, nil
}

func (i *Ingestor) prepare(ctx context.Context, sourceID, location string) (prepared, error) {
	if location == "" {
		return prepared{}, fmt.Errorf("%w: %s has no location", contracts.ErrSourceUnreadable, sourceID)
	}

	data, err := i.fetcher.Fetch(ctx, location)
	if err != nil {
		return prepared{}, fmt.Errorf("%w: %s: %v", contracts.ErrSourceUnreadable, sourceID, err)
	}

	decision, err := i.checksums.ShouldIngest(ctx, sourceID, bytes.NewReader(data))
	if err != nil {
		return prepared{}, err
	}

	p := prepared{result: contracts.SourceResult{
		SourceID: sourceID,
		Location: location,
		Digest:   decision.Digest,
	}}

	if !decision.Ingest && !i.cfg.Force {
		return p, nil
	}

	switch sourceID {
	case SourceAgencies:
		agencies, refs, stats, err := ecfr.ParseAgencies(data)
		if err != nil {
			return prepared{}, fmt.Errorf("%w: %v", contracts.ErrSourceUnreadable, err)
		}
		p.result.Rows = len(agencies)
		p.stage = func(ctx context.Context) error {
			return i.staging.ReplaceAgencies(ctx, agencies, refs)
		}
		i.logParse(sourceID, stats)

	case SourceCorrections:
		corrections, stats, err := ecfr.ParseCorrections(data)
		if err != nil {
			return prepared{}, fmt.Errorf("%w: %v", contracts.ErrSourceUnreadable, err)
		}
		p.result.Rows = len(corrections)
		p.stage = func(ctx context.Context) error {
			return i.staging.ReplaceCorrections(ctx, corrections)
		}
		i.logParse(sourceID, stats)

	default:
		return prepared{}, fmt.Errorf("unknown source %q", sourceID)
	}

	p.result.Ingested = true
	return p, nil
}

func (i *Ingestor) logParse(sourceID string, stats ecfr.ParseStats) {
	entry := i.logger.WithFields(map[string]interface{}{
		"source":  sourceID,
		"rows":    stats.Rows,
		"skipped": stats.Skipped,
	})
	if stats.Skipped > 0 {
		entry.Warn("Skipped unparseable rows")
		return
	}
	entry.Debug("Parsed source")
}

var _ contracts.Ingestor = (*Ingestor)(nil)
