package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCfrReference_Tier(t *testing.T) {
	tests := []struct {
		name string
		ref  CfrReference
		want Tier
	}{
		{"section wins over everything", CfrReference{Title: 7, Chapter: strPtr("I"), Part: strPtr("1"), Section: strPtr("1.1")}, TierSection},
		{"part wins over chapter", CfrReference{Title: 7, Chapter: strPtr("I"), Part: strPtr("1")}, TierPart},
		{"chapter only", CfrReference{Title: 7, Chapter: strPtr("I")}, TierChapter},
		{"title only", CfrReference{Title: 7}, TierTitle},
		{"no tier fields at all", CfrReference{}, TierTitle},
		{"empty strings are absent", CfrReference{Title: 7, Chapter: strPtr(""), Part: strPtr("")}, TierTitle},
		{"subchapter alone does not count", CfrReference{Title: 7, Subchapter: strPtr("A")}, TierTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Tier())
		})
	}
}

func TestCorrection_Derive(t *testing.T) {
	corrected := date(2024, time.March, 1)

	tests := []struct {
		name     string
		c        Correction
		wantYear int
		wantLag  *int
	}{
		{
			name:     "resolved uses corrected year",
			c:        Correction{ErrorOccurred: date(2023, time.December, 31), ErrorCorrected: &corrected},
			wantYear: 2024,
			wantLag:  intPtr(61),
		},
		{
			name:     "same day is zero lag",
			c:        Correction{ErrorOccurred: corrected, ErrorCorrected: &corrected},
			wantYear: 2024,
			wantLag:  intPtr(0),
		},
		{
			name:     "unresolved falls back to occurred year",
			c:        Correction{ErrorOccurred: date(2022, time.June, 5)},
			wantYear: 2022,
			wantLag:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.c
			c.Derive()
			assert.Equal(t, tt.wantYear, c.Year)
			assert.Equal(t, tt.wantLag, c.LagDays)
		})
	}
}

func intPtr(i int) *int { return &i }

func TestCorrection_LagNeverNegativeWhenChronological(t *testing.T) {
	base := date(2020, time.January, 1)
	for offset := 0; offset < 800; offset += 37 {
		corrected := base.AddDate(0, 0, offset)
		c := Correction{ErrorOccurred: base, ErrorCorrected: &corrected}
		require.True(t, c.IsChronological())

		c.Derive()
		require.NotNil(t, c.LagDays)
		assert.GreaterOrEqual(t, *c.LagDays, 0, fmt.Sprintf("offset %d", offset))
		assert.Equal(t, offset, *c.LagDays)
	}
}

func TestCorrection_IsChronological(t *testing.T) {
	before := date(2020, time.January, 1)
	c := Correction{ErrorOccurred: date(2020, time.February, 1), ErrorCorrected: &before}
	assert.False(t, c.IsChronological())

	unresolved := Correction{ErrorOccurred: date(2020, time.February, 1)}
	assert.True(t, unresolved.IsChronological())
	assert.False(t, unresolved.IsResolved())
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(a, b))
}

func TestIngestReport(t *testing.T) {
	r := IngestReport{
		Sources: []SourceResult{
			{SourceID: "agencies", Ingested: false},
			{SourceID: "corrections", Ingested: true},
		},
		DroppedReferences:       1,
		UnattributedCorrections: 2,
		DuplicateCorrections:    3,
		InvalidCorrections:      4,
	}

	assert.True(t, r.Changed())
	assert.Equal(t, 10, r.Dropped())

	r.Sources[1].Ingested = false
	assert.False(t, r.Changed())
}

func TestAgencyMetric_IsRankable(t *testing.T) {
	rvi := 1.5
	assert.True(t, (&AgencyMetric{TotalCorrections: 1, RVI: &rvi}).IsRankable())
	assert.False(t, (&AgencyMetric{TotalCorrections: 0, RVI: &rvi}).IsRankable())
	assert.False(t, (&AgencyMetric{TotalCorrections: 3}).IsRankable())
}

func TestPublishInput_Validate(t *testing.T) {
	in := PublishInput{SnapshotID: "s", RunID: "r", Corpus: &Corpus{}, Metrics: &MetricSet{}}
	require.NoError(t, in.Validate())

	in.Corpus = nil
	assert.Error(t, in.Validate())
}

func TestStage(t *testing.T) {
	assert.Len(t, AllStages(), 4)
	assert.Equal(t, "S2", StageScorecard.ShortName())
	assert.True(t, IsValidStage("S3_PUBLISH"))
	assert.False(t, IsValidStage("S4_RANKER"))
}

func TestSentinelsWrap(t *testing.T) {
	err := fmt.Errorf("fetch agencies: %w", ErrSourceUnreadable)
	assert.True(t, errors.Is(err, ErrSourceUnreadable))
	assert.False(t, errors.Is(err, ErrPublishFailure))
}
