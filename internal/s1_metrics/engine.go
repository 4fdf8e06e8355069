package s1_metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// Engine computes per-agency metrics and corpus trends (S1)
// ⭐ SSOT: AgencyMetric is derived here only
type Engine struct {
	cfg     *scoringconfig.Config
	workers int
	logger  *logger.Logger
}

// NewEngine creates a new metrics engine
func NewEngine(cfg *scoringconfig.Config, workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		cfg:     cfg,
		workers: workers,
		logger:  log.WithField("module", "metrics"),
	}
}

// agencyInput is everything one worker needs to aggregate one agency
type agencyInput struct {
	slug        string
	refs        []contracts.CfrReference
	corrections []contracts.Correction
}

type metricResult struct {
	metric contracts.AgencyMetric
	err    error
}

// Compute aggregates every agency in the corpus.
// Agencies are independent, so aggregation fans out over a worker pool;
// the output is sorted by slug and does not depend on scheduling.
func (e *Engine) Compute(ctx context.Context, corpus *contracts.Corpus) (*contracts.MetricSet, error) {
	start := time.Now()

	inputs := groupByAgency(corpus)

	e.logger.WithFields(map[string]interface{}{
		"agencies": len(inputs),
		"workers":  e.workers,
	}).Info("Starting metrics computation")

	// 1. Worker pool
	inputCh := make(chan agencyInput, len(inputs))
	resultCh := make(chan metricResult, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, inputCh, resultCh)
		}()
	}

	for _, in := range inputs {
		inputCh <- in
	}
	close(inputCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 2. Collect
	metrics := make([]contracts.AgencyMetric, 0, len(inputs))
	var firstErr error
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		metrics = append(metrics, r.metric)
	}
	if firstErr != nil {
		return nil, fmt.Errorf("compute metrics: %w", firstErr)
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].AgencySlug < metrics[j].AgencySlug
	})

	// 3. Corpus-wide trends
	trends := ComputeTrends(corpus.Corrections)

	undefinedRVI, undefinedLag := 0, 0
	for _, m := range metrics {
		err := Undefined(m)
		if err == nil {
			continue
		}
		if m.RVI == nil {
			undefinedRVI++
		}
		if m.AvgCorrectionLagDays == nil {
			undefinedLag++
		}
		e.logger.WithError(err).WithField("agency", m.AgencySlug).Debug("Metric left null")
	}

	e.logger.WithFields(map[string]interface{}{
		"metrics":       len(metrics),
		"undefined_rvi": undefinedRVI,
		"undefined_lag": undefinedLag,
		"years":         len(trends.Yearly),
		"titles":        len(trends.ByTitle),
		"duration":      time.Since(start),
	}).Info("Metrics computation completed")

	return &contracts.MetricSet{Metrics: metrics, Trends: trends}, nil
}

// Undefined returns ErrAggregationUndefined naming every null metric of m, or nil.
// RVI is undefined for a zero word estimate; average lag has no resolved corrections to average.
func Undefined(m contracts.AgencyMetric) error {
	var fields []string
	if m.RVI == nil {
		fields = append(fields, "rvi")
	}
	if m.AvgCorrectionLagDays == nil {
		fields = append(fields, "avg_correction_lag_days")
	}
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", contracts.ErrAggregationUndefined, m.AgencySlug, strings.Join(fields, ", "))
}

func (e *Engine) worker(ctx context.Context, inputCh <-chan agencyInput, resultCh chan<- metricResult) {
	for in := range inputCh {
		select {
		case <-ctx.Done():
			resultCh <- metricResult{err: ctx.Err()}
			continue
		default:
		}

		resultCh <- metricResult{metric: e.Aggregate(in.slug, in.refs, in.corrections)}
	}
}

// Aggregate computes the metric of one agency from its own references and corrections
func (e *Engine) Aggregate(slug string, refs []contracts.CfrReference, corrections []contracts.Correction) contracts.AgencyMetric {
	m := contracts.AgencyMetric{
		AgencySlug:        slug,
		WordCountEstimate: EstimateWords(e.cfg.WordCount, refs),
		CfrReferenceCount: len(refs),
		TotalCorrections:  len(corrections),
	}

	m.RVI = RVI(m.TotalCorrections, m.WordCountEstimate, e.cfg.Volatility.RVIScale)

	var (
		lagSum   int
		lagCount int
		years    = make(map[int]struct{})
		first    int
		last     int
	)
	for i, c := range corrections {
		if c.LagDays != nil {
			lagSum += *c.LagDays
			lagCount++
		}
		years[c.Year] = struct{}{}
		if i == 0 || c.Year < first {
			first = c.Year
		}
		if i == 0 || c.Year > last {
			last = c.Year
		}
	}

	if lagCount > 0 {
		avg := float64(lagSum) / float64(lagCount)
		m.AvgCorrectionLagDays = &avg
	}

	m.YearsWithCorrections = len(years)
	if len(corrections) > 0 {
		m.FirstCorrectionYear = &first
		m.LastCorrectionYear = &last
	}

	return m
}

// WordWeight returns the estimated word count of one reference.
// Exactly one tier applies; a reference with no tier fields takes the title weight.
func WordWeight(w scoringconfig.WordCount, ref contracts.CfrReference) int64 {
	switch ref.Tier() {
	case contracts.TierSection:
		return w.SectionWords
	case contracts.TierPart:
		return w.PartWords
	case contracts.TierChapter:
		return w.ChapterWords
	default:
		return w.TitleWords
	}
}

// EstimateWords sums WordWeight over refs
func EstimateWords(w scoringconfig.WordCount, refs []contracts.CfrReference) int64 {
	var total int64
	for _, r := range refs {
		total += WordWeight(w, r)
	}
	return total
}

// RVI is corrections per scale estimated words.
// It is undefined (nil) when the word estimate is zero.
func RVI(corrections int, words int64, scale float64) *float64 {
	if words <= 0 {
		return nil
	}
	v := float64(corrections) / float64(words) * scale
	return &v
}

// groupByAgency buckets references and corrections per agency slug.
// Every agency gets an entry, including ones with no rows.
func groupByAgency(corpus *contracts.Corpus) []agencyInput {
	idx := make(map[string]int, len(corpus.Agencies))
	inputs := make([]agencyInput, 0, len(corpus.Agencies))

	for _, a := range corpus.Agencies {
		if _, dup := idx[a.Slug]; dup {
			continue
		}
		idx[a.Slug] = len(inputs)
		inputs = append(inputs, agencyInput{slug: a.Slug})
	}

	for _, r := range corpus.CfrReferences {
		if i, ok := idx[r.AgencySlug]; ok {
			inputs[i].refs = append(inputs[i].refs, r)
		}
	}
	for _, c := range corpus.Corrections {
		if i, ok := idx[c.AgencySlug]; ok {
			inputs[i].corrections = append(inputs[i].corrections, c)
		}
	}

	return inputs
}

var _ contracts.MetricsEngine = (*Engine)(nil)
