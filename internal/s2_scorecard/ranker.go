package s2_scorecard

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

// gradeEpsilon absorbs float noise in rank/N at grade boundaries
const gradeEpsilon = 1e-9

// Ranker implements S2: competition ranks, weighted composite, grade
// ⭐ SSOT: scorecard ranking logic lives here only
type Ranker struct {
	weights scoringconfig.Composite
	grades  scoringconfig.Grades
	logger  *logger.Logger
}

// NewRanker creates a new ranker after validating the scoring config
func NewRanker(cfg *scoringconfig.Config, log *logger.Logger) (*Ranker, error) {
	if err := scoringconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &Ranker{
		weights: cfg.Composite,
		grades:  cfg.Grades,
		logger:  log.WithField("module", "ranker"),
	}, nil
}

// Rank scores the population of agencies with corrections and a defined RVI.
// It is a pure function of the metric set: input order does not matter.
// Output is sorted by composite score ascending, then slug.
func (r *Ranker) Rank(ctx context.Context, metrics []contracts.AgencyMetric) ([]contracts.Scorecard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Population
	seen := make(map[string]struct{}, len(metrics))
	population := make([]contracts.AgencyMetric, 0, len(metrics))
	for _, m := range metrics {
		if _, dup := seen[m.AgencySlug]; dup {
			return nil, fmt.Errorf("duplicate metric for agency %q", m.AgencySlug)
		}
		seen[m.AgencySlug] = struct{}{}

		if m.IsRankable() {
			population = append(population, m)
		}
	}

	if len(population) == 0 {
		r.logger.WithField("metrics", len(metrics)).Warn("No rankable agencies")
		return []contracts.Scorecard{}, nil
	}

	// 2. Four competition rankings
	correctionsRank := CompetitionRanks(population, byCorrections)
	rviRank := CompetitionRanks(population, byRVI)
	sizeRank := CompetitionRanks(population, bySize)
	responsivenessRank := CompetitionRanks(population, byResponsiveness)

	// 3. Composite + grade
	n := float64(len(population))
	cards := make([]contracts.Scorecard, 0, len(population))
	for i, m := range population {
		card := contracts.Scorecard{
			AgencySlug:         m.AgencySlug,
			CorrectionsRank:    correctionsRank[i],
			RVIRank:            rviRank[i],
			SizeRank:           sizeRank[i],
			ResponsivenessRank: responsivenessRank[i],
		}
		card.CompositeScore = r.composite(card, n)
		card.ActivityGrade = r.grade(float64(card.CorrectionsRank) / n)
		cards = append(cards, card)
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CompositeScore != cards[j].CompositeScore {
			return cards[i].CompositeScore < cards[j].CompositeScore
		}
		return cards[i].AgencySlug < cards[j].AgencySlug
	})

	r.logger.WithFields(map[string]interface{}{
		"metrics":    len(metrics),
		"ranked":     len(cards),
		"excluded":   len(metrics) - len(cards),
		"top_score":  cards[0].CompositeScore,
		"top_agency": cards[0].AgencySlug,
	}).Info("Ranking completed")

	return cards, nil
}

// composite blends the four rank fractions, rounded to 2 dp
func (r *Ranker) composite(c contracts.Scorecard, n float64) float64 {
	score := 100 * (r.weights.Corrections*float64(c.CorrectionsRank)/n +
		r.weights.RVI*float64(c.RVIRank)/n +
		r.weights.Size*float64(c.SizeRank)/n +
		r.weights.Responsiveness*float64(c.ResponsivenessRank)/n)
	return Round2(score)
}

// grade maps the corrections percentile onto A..F
func (r *Ranker) grade(percentile float64) contracts.Grade {
	switch {
	case percentile <= r.grades.A+gradeEpsilon:
		return contracts.GradeA
	case percentile <= r.grades.B+gradeEpsilon:
		return contracts.GradeB
	case percentile <= r.grades.C+gradeEpsilon:
		return contracts.GradeC
	case percentile <= r.grades.D+gradeEpsilon:
		return contracts.GradeD
	default:
		return contracts.GradeF
	}
}

// Round2 rounds half away from zero to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// compareFunc orders two metrics: negative when a ranks ahead of b, zero on a tie
type compareFunc func(a, b *contracts.AgencyMetric) int

// CompetitionRanks returns the 1-based competition rank of each element of pop.
// Tied elements share the lowest ordinal and the next distinct value skips by the tie count.
func CompetitionRanks(pop []contracts.AgencyMetric, compare compareFunc) []int {
	order := make([]int, len(pop))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := &pop[order[i]], &pop[order[j]]
		if c := compare(a, b); c != 0 {
			return c < 0
		}
		return a.AgencySlug < b.AgencySlug
	})

	ranks := make([]int, len(pop))
	for pos, idx := range order {
		if pos > 0 && compare(&pop[order[pos-1]], &pop[idx]) == 0 {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}

func byCorrections(a, b *contracts.AgencyMetric) int {
	return cmp.Compare(b.TotalCorrections, a.TotalCorrections) // desc
}

func byRVI(a, b *contracts.AgencyMetric) int {
	return compareNullable(a.RVI, b.RVI, true)
}

func bySize(a, b *contracts.AgencyMetric) int {
	return cmp.Compare(b.WordCountEstimate, a.WordCountEstimate) // desc
}

func byResponsiveness(a, b *contracts.AgencyMetric) int {
	return compareNullable(a.AvgCorrectionLagDays, b.AvgCorrectionLagDays, false)
}

// compareNullable orders defined values (desc or asc) ahead of nil
func compareNullable(a, b *float64, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b, *a)
	}
	return cmp.Compare(*a, *b)
}

var _ contracts.ScorecardRanker = (*Ranker)(nil)
