package s2_scorecard

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

func f(v float64) *float64 { return &v }

func metric(slug string, corrections int, rvi *float64, words int64, lag *float64) contracts.AgencyMetric {
	return contracts.AgencyMetric{
		AgencySlug:           slug,
		TotalCorrections:     corrections,
		RVI:                  rvi,
		WordCountEstimate:    words,
		AvgCorrectionLagDays: lag,
	}
}

func newRanker(t *testing.T) *Ranker {
	t.Helper()
	r, err := NewRanker(scoringconfig.Default(), logger.Nop())
	require.NoError(t, err)
	return r
}

func byslug(cards []contracts.Scorecard) map[string]contracts.Scorecard {
	out := make(map[string]contracts.Scorecard, len(cards))
	for _, c := range cards {
		out[c.AgencySlug] = c
	}
	return out
}

// tenAgencyPopulation puts "x" at corrections 1st, rvi 5th, size 3rd, responsiveness 8th
func tenAgencyPopulation() []contracts.AgencyMetric {
	pop := []contracts.AgencyMetric{metric("x", 100, f(50), 5_000, f(80))}

	rvis := []float64{60, 70, 80, 90, 10, 20, 30, 40, 45}
	sizes := []int64{9_000, 8_000, 100, 200, 300, 400, 500, 600, 700}
	lags := []float64{10, 20, 30, 40, 50, 60, 70, 90, 100}

	for i := 0; i < 9; i++ {
		pop = append(pop, metric(fmt.Sprintf("o%d", i+1), i+1, f(rvis[i]), sizes[i], f(lags[i])))
	}
	return pop
}

func TestRank_CompositeScenario(t *testing.T) {
	cards, err := newRanker(t).Rank(context.Background(), tenAgencyPopulation())
	require.NoError(t, err)
	require.Len(t, cards, 10)

	x := byslug(cards)["x"]
	assert.Equal(t, 1, x.CorrectionsRank)
	assert.Equal(t, 5, x.RVIRank)
	assert.Equal(t, 3, x.SizeRank)
	assert.Equal(t, 8, x.ResponsivenessRank)
	assert.Equal(t, 41.50, x.CompositeScore)
	assert.Equal(t, contracts.GradeA, x.ActivityGrade)
}

func TestComposite_ExactWeights(t *testing.T) {
	r := newRanker(t)
	card := contracts.Scorecard{CorrectionsRank: 1, RVIRank: 5, SizeRank: 3, ResponsivenessRank: 8}
	assert.Equal(t, 41.50, r.composite(card, 10))

	// Rank 1 everywhere in a population of one contributes the full weight sum
	top := contracts.Scorecard{CorrectionsRank: 1, RVIRank: 1, SizeRank: 1, ResponsivenessRank: 1}
	assert.Equal(t, 100.0, r.composite(top, 1))
}

func TestCompetitionRanks_Ties(t *testing.T) {
	pop := []contracts.AgencyMetric{
		metric("a", 5, f(1), 1, nil),
		metric("b", 7, f(1), 1, nil),
		metric("c", 5, f(1), 1, nil),
		metric("d", 3, f(1), 1, nil),
		metric("e", 5, f(1), 1, nil),
	}

	ranks := CompetitionRanks(pop, byCorrections)

	// 7 → 1; three-way tie at 5 → 2; next distinct value → 2 + 3 = 5
	assert.Equal(t, []int{2, 1, 2, 5, 2}, ranks)
}

func TestCompetitionRanks_NullsLast(t *testing.T) {
	pop := []contracts.AgencyMetric{
		metric("never-resolves", 1, f(1), 1, nil),
		metric("slow", 1, f(1), 1, f(30)),
		metric("fast", 1, f(1), 1, f(2)),
		metric("also-never", 1, f(1), 1, nil),
	}

	ranks := CompetitionRanks(pop, byResponsiveness)
	assert.Equal(t, []int{3, 2, 1, 3}, ranks)

	rviPop := []contracts.AgencyMetric{
		metric("undefined", 1, nil, 0, nil),
		metric("low", 1, f(1), 1, nil),
		metric("high", 1, f(9), 1, nil),
	}
	assert.Equal(t, []int{3, 2, 1}, CompetitionRanks(rviPop, byRVI))
}

func TestRank_ExcludesUnrankableAgencies(t *testing.T) {
	metrics := []contracts.AgencyMetric{
		metric("active", 4, f(2), 200_000, f(5)),
		metric("quiet", 0, f(0), 50_000, nil),   // no corrections
		metric("no-text", 3, nil, 0, f(1)),      // zero words, undefined rvi
		metric("second", 2, f(4), 50_000, f(9)), // ranked
	}

	cards, err := newRanker(t).Rank(context.Background(), metrics)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	got := byslug(cards)
	assert.Contains(t, got, "active")
	assert.Contains(t, got, "second")
	assert.NotContains(t, got, "no-text")
	assert.NotContains(t, got, "quiet")

	// no-text would have been 2nd on corrections; it does not shift anyone's rank
	assert.Equal(t, 1, got["active"].CorrectionsRank)
	assert.Equal(t, 2, got["second"].CorrectionsRank)
	assert.Equal(t, 1, got["second"].RVIRank)
}

func TestRank_Deterministic(t *testing.T) {
	r := newRanker(t)
	base := tenAgencyPopulation()

	want, err := r.Rank(context.Background(), base)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]contracts.AgencyMetric(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := r.Rank(context.Background(), shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRank_OutputOrder(t *testing.T) {
	cards, err := newRanker(t).Rank(context.Background(), tenAgencyPopulation())
	require.NoError(t, err)

	for i := 1; i < len(cards); i++ {
		prev, cur := cards[i-1], cards[i]
		if prev.CompositeScore == cur.CompositeScore {
			assert.Less(t, prev.AgencySlug, cur.AgencySlug)
			continue
		}
		assert.Less(t, prev.CompositeScore, cur.CompositeScore)
	}
}

func TestRank_Grades(t *testing.T) {
	metrics := []contracts.AgencyMetric{
		metric("a", 50, f(1), 1, f(1)),
		metric("b", 40, f(1), 1, f(1)),
		metric("c", 30, f(1), 1, f(1)),
		metric("d", 20, f(1), 1, f(1)),
		metric("e", 10, f(1), 1, f(1)),
	}

	cards, err := newRanker(t).Rank(context.Background(), metrics)
	require.NoError(t, err)
	got := byslug(cards)

	// rank/N = 0.2, 0.4, 0.6, 0.8, 1.0; boundaries are inclusive
	assert.Equal(t, contracts.GradeA, got["a"].ActivityGrade)
	assert.Equal(t, contracts.GradeB, got["b"].ActivityGrade)
	assert.Equal(t, contracts.GradeC, got["c"].ActivityGrade)
	assert.Equal(t, contracts.GradeD, got["d"].ActivityGrade)
	assert.Equal(t, contracts.GradeF, got["e"].ActivityGrade)
}

func TestRank_TiedCorrectionsShareGrade(t *testing.T) {
	metrics := []contracts.AgencyMetric{
		metric("a", 9, f(1), 1, f(1)),
		metric("b", 9, f(2), 1, f(1)),
		metric("c", 1, f(3), 1, f(1)),
	}

	cards, err := newRanker(t).Rank(context.Background(), metrics)
	require.NoError(t, err)
	got := byslug(cards)

	assert.Equal(t, 1, got["a"].CorrectionsRank)
	assert.Equal(t, 1, got["b"].CorrectionsRank)
	assert.Equal(t, 3, got["c"].CorrectionsRank)
	assert.Equal(t, got["a"].ActivityGrade, got["b"].ActivityGrade)
}

func TestRank_EmptyAndErrors(t *testing.T) {
	r := newRanker(t)

	cards, err := r.Rank(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = r.Rank(context.Background(), []contracts.AgencyMetric{
		metric("dup", 1, f(1), 1, nil),
		metric("dup", 2, f(1), 1, nil),
	})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Rank(ctx, tenAgencyPopulation())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRanker_RejectsInvalidWeights(t *testing.T) {
	cfg := scoringconfig.Default()
	cfg.Composite.RVI = 0.5

	_, err := NewRanker(cfg, logger.Nop())
	assert.Error(t, err)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{41.499999999, 41.5},
		{12.346, 12.35},
		{0.004, 0},
		{99.999, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "%v", tt.in)
	}
}
