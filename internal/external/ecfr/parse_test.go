package ecfr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/pkg/config"
	"github.com/wonny/ecfr-scorecard/pkg/httputil"
	"github.com/wonny/ecfr-scorecard/pkg/logger"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParseAgencies(t *testing.T) {
	agencies, refs, stats, err := ParseAgencies(readFixture(t, "agencies.json"))
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 1, stats.Skipped) // duplicate forest-service

	require.Len(t, agencies, 3)
	assert.Equal(t, "agriculture-department", agencies[0].Slug)
	assert.Equal(t, 1, agencies[0].ChildCount)
	assert.Equal(t, 3, agencies[0].TotalCFRReferences)
	assert.True(t, agencies[0].IsTopLevel())

	assert.Equal(t, "forest-service", agencies[1].Slug)
	assert.Equal(t, "agriculture-department", agencies[1].ParentSlug)
	assert.Equal(t, "Forest Service", agencies[1].Name)

	assert.Equal(t, "federal-election-commission", agencies[2].Slug)

	require.Len(t, refs, 5)
	assert.Equal(t, contracts.TierChapter, refs[0].Tier())
	assert.Equal(t, contracts.TierPart, refs[1].Tier())
	assert.Equal(t, contracts.TierTitle, refs[2].Tier())
	assert.Equal(t, 48, refs[2].Title)
	assert.Equal(t, "forest-service", refs[3].AgencySlug)
}

func TestParseAgenciesMalformed(t *testing.T) {
	_, _, _, err := ParseAgencies([]byte(`{"agencies": [`))
	assert.Error(t, err)
}

func TestParseCorrections(t *testing.T) {
	corrections, stats, err := ParseCorrections(readFixture(t, "corrections.json"))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 1, stats.Skipped) // id 104 has no title

	require.Len(t, corrections, 4)

	first := corrections[0]
	assert.Equal(t, int64(101), first.ECFRID)
	assert.Equal(t, "7 CFR 1.1", first.CFRReference)
	assert.Equal(t, 7, first.Title)
	require.NotNil(t, first.Part)
	assert.Equal(t, "1", *first.Part)
	assert.Nil(t, first.Chapter)
	require.NotNil(t, first.ErrorCorrected)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *first.ErrorCorrected)
	assert.Equal(t, "89 FR 1001", first.FRCitation)

	// Year and lag are not derived at parse time
	assert.Zero(t, first.Year)
	assert.Nil(t, first.LagDays)

	assert.Nil(t, corrections[1].ErrorCorrected)
}

func TestToCorrection(t *testing.T) {
	occurred := "2024-02-01"
	bad := "02/01/2024"
	empty := ""

	tests := []struct {
		name   string
		rec    CorrectionRecord
		wantOK bool
	}{
		{"valid", CorrectionRecord{ID: 1, Title: 5, ErrorOccurred: &occurred}, true},
		{"missing id", CorrectionRecord{Title: 5, ErrorOccurred: &occurred}, false},
		{"missing occurred", CorrectionRecord{ID: 1, Title: 5}, false},
		{"bad occurred", CorrectionRecord{ID: 1, Title: 5, ErrorOccurred: &bad}, false},
		{"bad corrected", CorrectionRecord{ID: 1, Title: 5, ErrorOccurred: &occurred, ErrorCorrected: &bad}, false},
		{"empty corrected is unresolved", CorrectionRecord{ID: 1, Title: 5, ErrorOccurred: &occurred, ErrorCorrected: &empty}, true},
		{"title out of range", CorrectionRecord{ID: 1, Title: 51, ErrorOccurred: &occurred}, false},
		{
			"title from hierarchy",
			CorrectionRecord{ID: 1, ErrorOccurred: &occurred, CFRReferences: []CorrectionReference{{Hierarchy: Hierarchy{Title: 12}}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := toCorrection(tt.rec)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		input   string
		want    FlexInt
		wantErr bool
	}{
		{`7`, 7, false},
		{`"7"`, 7, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`"VII"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var f FlexInt
			err := f.UnmarshalJSON([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestFetchLocalFile(t *testing.T) {
	client := NewClient(nil, logger.Nop())

	abs, err := filepath.Abs(filepath.Join("testdata", "agencies.json"))
	require.NoError(t, err)

	for _, location := range []string{abs, "file://" + abs} {
		body, err := client.Fetch(context.Background(), location)
		require.NoError(t, err, location)
		assert.Contains(t, string(body), "agriculture-department")
	}

	_, err = client.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFetchRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ecfr_corrections":[]}`))
	}))
	defer server.Close()

	cfg := &config.Config{ECFR: config.ECFRConfig{RateLimit: 50, Timeout: 5 * time.Second}}
	client := NewClient(httputil.New(cfg, logger.Nop()).DisableRetry(), logger.Nop())

	body, err := client.Fetch(context.Background(), server.URL+"/api/admin/v1/corrections.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ecfr_corrections":[]}`, string(body))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://www.ecfr.gov/api/admin/v1/agencies.json"))
	assert.True(t, IsRemote("http://localhost/x"))
	assert.False(t, IsRemote("file:///tmp/x.json"))
	assert.False(t, IsRemote("data/agencies.json"))
}
