package s1_metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

func s(v string) *string { return &v }

func correction(id int64, slug string, title int, occurred time.Time, corrected *time.Time) contracts.Correction {
	c := contracts.Correction{
		ECFRID:         id,
		AgencySlug:     slug,
		Title:          title,
		ErrorOccurred:  occurred,
		ErrorCorrected: corrected,
	}
	c.Derive()
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func newEngine(workers int) *Engine {
	return NewEngine(scoringconfig.Default(), workers, logger.Nop())
}

func TestWordWeight(t *testing.T) {
	w := scoringconfig.Default().WordCount

	tests := []struct {
		name string
		ref  contracts.CfrReference
		want int64
	}{
		{"section", contracts.CfrReference{Title: 1, Chapter: s("I"), Part: s("2"), Section: s("2.1")}, 500},
		{"part", contracts.CfrReference{Title: 1, Chapter: s("I"), Part: s("2")}, 2_000},
		{"chapter", contracts.CfrReference{Title: 1, Chapter: s("I")}, 10_000},
		{"title only", contracts.CfrReference{Title: 1}, 50_000},
		{"no tier fields", contracts.CfrReference{}, 50_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordWeight(w, tt.ref))
		})
	}
}

func TestEstimateWords_ThreeTierScenario(t *testing.T) {
	refs := []contracts.CfrReference{
		{AgencySlug: "a", Title: 7, Part: s("1")},
		{AgencySlug: "a", Title: 7, Chapter: s("II")},
		{AgencySlug: "a"},
	}

	assert.Equal(t, int64(62_000), EstimateWords(scoringconfig.Default().WordCount, refs))
}

func TestRVI(t *testing.T) {
	assert.Nil(t, RVI(5, 0, 100_000))

	v := RVI(3, 60_000, 100_000)
	require.NotNil(t, v)
	assert.InDelta(t, 5.0, *v, 1e-9)

	zero := RVI(0, 10_000, 100_000)
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, *zero)
}

func TestRVI_Monotonic(t *testing.T) {
	base := *RVI(10, 100_000, 100_000)
	assert.Greater(t, *RVI(11, 100_000, 100_000), base, "more corrections, higher rvi")
	assert.Less(t, *RVI(10, 200_000, 100_000), base, "more text, lower rvi")
}

func TestAggregate(t *testing.T) {
	e := newEngine(1)

	refs := []contracts.CfrReference{
		{AgencySlug: "a", Title: 7, Chapter: s("I")},
		{AgencySlug: "a", Title: 7, Part: s("5")},
	}
	corrections := []contracts.Correction{
		correction(1, "a", 7, day(2020, 1, 1), dayPtr(2020, 1, 11)), // lag 10
		correction(2, "a", 7, day(2022, 3, 1), dayPtr(2022, 3, 21)), // lag 20
		correction(3, "a", 7, day(2021, 6, 1), nil),                 // unresolved
	}

	m := e.Aggregate("a", refs, corrections)

	assert.Equal(t, "a", m.AgencySlug)
	assert.Equal(t, int64(12_000), m.WordCountEstimate)
	assert.Equal(t, 2, m.CfrReferenceCount)
	assert.Equal(t, 3, m.TotalCorrections)
	require.NotNil(t, m.RVI)
	assert.InDelta(t, 25.0, *m.RVI, 1e-9)
	require.NotNil(t, m.AvgCorrectionLagDays)
	assert.InDelta(t, 15.0, *m.AvgCorrectionLagDays, 1e-9, "unresolved corrections are excluded")
	assert.Equal(t, 3, m.YearsWithCorrections)
	assert.Equal(t, 2020, *m.FirstCorrectionYear)
	assert.Equal(t, 2022, *m.LastCorrectionYear)
}

func TestAggregate_UndefinedValuesStayNull(t *testing.T) {
	e := newEngine(1)

	// No references: zero words, rvi undefined
	noRefs := e.Aggregate("x", nil, []contracts.Correction{
		correction(1, "x", 3, day(2020, 1, 1), nil),
	})
	assert.Equal(t, int64(0), noRefs.WordCountEstimate)
	assert.Nil(t, noRefs.RVI)
	assert.Nil(t, noRefs.AvgCorrectionLagDays, "no resolved corrections means no average, not zero")
	assert.Equal(t, 1, noRefs.TotalCorrections)

	// No corrections at all
	quiet := e.Aggregate("q", []contracts.CfrReference{{Title: 2}}, nil)
	assert.Equal(t, 0, quiet.TotalCorrections)
	require.NotNil(t, quiet.RVI)
	assert.Equal(t, 0.0, *quiet.RVI)
	assert.Nil(t, quiet.FirstCorrectionYear)
	assert.Nil(t, quiet.LastCorrectionYear)
	assert.Equal(t, 0, quiet.YearsWithCorrections)
}

func TestUndefined(t *testing.T) {
	e := newEngine(1)

	tests := []struct {
		name   string
		metric contracts.AgencyMetric
		want   []string // undefined field names, empty when every metric is defined
	}{
		{
			name: "fully defined",
			metric: e.Aggregate("busy", []contracts.CfrReference{{Title: 1, Part: s("1")}}, []contracts.Correction{
				correction(1, "busy", 1, day(2024, 1, 1), dayPtr(2024, 1, 3)),
			}),
		},
		{
			name:   "no references",
			metric: e.Aggregate("x", nil, []contracts.Correction{correction(1, "x", 3, day(2020, 1, 1), nil)}),
			want:   []string{"rvi", "avg_correction_lag_days"},
		},
		{
			name:   "no corrections",
			metric: e.Aggregate("q", []contracts.CfrReference{{Title: 2}}, nil),
			want:   []string{"avg_correction_lag_days"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Undefined(tt.metric)
			if len(tt.want) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrAggregationUndefined)
			assert.Contains(t, err.Error(), tt.metric.AgencySlug)
			for _, field := range tt.want {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func buildCorpus(agencies int) *contracts.Corpus {
	corpus := &contracts.Corpus{}
	var id int64
	for i := 0; i < agencies; i++ {
		slug := fmt.Sprintf("agency-%03d", agencies-i) // reverse order on purpose
		corpus.Agencies = append(corpus.Agencies, contracts.Agency{Slug: slug})
		for r := 0; r <= i%3; r++ {
			corpus.CfrReferences = append(corpus.CfrReferences, contracts.CfrReference{AgencySlug: slug, Title: i%50 + 1, Part: s(fmt.Sprint(r))})
		}
		for c := 0; c < i%5; c++ {
			id++
			corpus.Corrections = append(corpus.Corrections,
				correction(id, slug, i%50+1, day(2015+c, time.Month(c+1), 1), dayPtr(2015+c, time.Month(c+1), 1+c)))
		}
	}
	return corpus
}

func TestCompute_DeterministicAcrossWorkerCounts(t *testing.T) {
	corpus := buildCorpus(60)

	single, err := newEngine(1).Compute(context.Background(), corpus)
	require.NoError(t, err)
	parallel, err := newEngine(8).Compute(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, single, parallel)
	require.Len(t, single.Metrics, 60)
	assert.Equal(t, "agency-001", single.Metrics[0].AgencySlug)
	assert.Equal(t, "agency-060", single.Metrics[59].AgencySlug)
}

func TestCompute_EveryAgencyGetsAMetric(t *testing.T) {
	corpus := &contracts.Corpus{
		Agencies: []contracts.Agency{{Slug: "empty"}, {Slug: "busy"}},
		CfrReferences: []contracts.CfrReference{
			{AgencySlug: "busy", Title: 1, Chapter: s("I")},
		},
		Corrections: []contracts.Correction{
			correction(1, "busy", 1, day(2024, 1, 1), dayPtr(2024, 1, 3)),
		},
	}

	set, err := newEngine(4).Compute(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, set.Metrics, 2)

	assert.Equal(t, "busy", set.Metrics[0].AgencySlug)
	assert.Equal(t, "empty", set.Metrics[1].AgencySlug)
	assert.Nil(t, set.Metrics[1].RVI)

	require.Len(t, set.Trends.Yearly, 1)
	assert.Equal(t, 2024, set.Trends.Yearly[0].Year)
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(2).Compute(ctx, buildCorpus(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
