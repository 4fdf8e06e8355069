package staging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

func s(v string) *string { return &v }

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplaceAndLoadAgencies(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	agencies := []contracts.Agency{
		{Slug: "b-agency", Name: "B", ShortName: "B", TotalCFRReferences: 2, ChildCount: 1},
		{Slug: "a-child", Name: "A child", ParentSlug: "b-agency", TotalCFRReferences: 0},
	}
	refs := []contracts.CfrReference{
		{AgencySlug: "b-agency", Title: 7, Chapter: s("I")},
		{AgencySlug: "b-agency", Title: 9, Part: s("12"), Section: s("12.1")},
	}
	require.NoError(t, store.ReplaceAgencies(ctx, agencies, refs))

	gotAgencies, gotRefs, err := store.LoadAgencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, agencies, gotAgencies) // source order, not slug order
	assert.Equal(t, refs, gotRefs)

	// Replace wipes the previous contents
	require.NoError(t, store.ReplaceAgencies(ctx, agencies[:1], nil))
	gotAgencies, gotRefs, err = store.LoadAgencies(ctx)
	require.NoError(t, err)
	assert.Len(t, gotAgencies, 1)
	assert.Empty(t, gotRefs)
}

func TestReplaceAndLoadCorrections(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	corrected := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	corrections := []contracts.Correction{
		{
			ECFRID:           11,
			CFRReference:     "7 CFR 1.1",
			Title:            7,
			Part:             s("1"),
			Section:          s("1.1"),
			CorrectiveAction: "Amended",
			ErrorOccurred:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			ErrorCorrected:   &corrected,
			FRCitation:       "89 FR 1",
		},
		{
			ECFRID:        12,
			AgencySlug:    "pinned",
			Title:         40,
			ErrorOccurred: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, store.ReplaceCorrections(ctx, corrections))

	got, err := store.LoadCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(11), got[0].ECFRID)
	assert.Equal(t, "1.1", *got[0].Section)
	assert.Nil(t, got[0].Chapter)
	require.NotNil(t, got[0].ErrorCorrected)
	assert.True(t, corrected.Equal(*got[0].ErrorCorrected))
	assert.Equal(t, "pinned", got[1].AgencySlug)
	assert.Nil(t, got[1].ErrorCorrected)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["staging_corrections"])
	assert.Equal(t, 0, counts["staging_agencies"])
}

func TestReplaceRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.ReplaceCorrections(ctx, []contracts.Correction{
		{ECFRID: 1, Title: 1, ErrorOccurred: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := store.ReplaceCorrections(cctx, []contracts.Correction{
		{ECFRID: 2, Title: 1, ErrorOccurred: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.Error(t, err)

	got, err := store.LoadCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ECFRID)
}

func TestOpenFileAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staging.duckdb")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.ReplaceAgencies(ctx, []contracts.Agency{{Slug: "x"}}, nil))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, path, reopened.Path())
	agencies, _, err := reopened.LoadAgencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []contracts.Agency{{Slug: "x"}}, agencies)
}
