package s3_publish

import (
	"github.com/jackc/pgx/v5"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// copyTable is one snapshot-keyed table written with COPY
type copyTable struct {
	name    string
	columns []string
	rows    [][]any
}

func (t copyTable) identifier() pgx.Identifier {
	return pgx.Identifier{"serving", t.name}
}

// snapshotTables lays out every row of a publish input for COPY.
// The first column of each table is always snapshot_id.
func snapshotTables(in *contracts.PublishInput) []copyTable {
	id := in.SnapshotID

	tables := []copyTable{
		{
			name:    "snapshot_agencies",
			columns: []string{"snapshot_id", "slug", "name", "short_name", "parent_slug", "total_cfr_references", "child_count"},
			rows:    make([][]any, 0, len(in.Corpus.Agencies)),
		},
		{
			name:    "snapshot_cfr_references",
			columns: []string{"snapshot_id", "agency_slug", "title", "chapter", "subchapter", "part", "section"},
			rows:    make([][]any, 0, len(in.Corpus.CfrReferences)),
		},
		{
			name: "snapshot_corrections",
			columns: []string{"snapshot_id", "ecfr_id", "agency_slug", "cfr_reference", "title", "chapter", "part", "section",
				"corrective_action", "error_occurred", "error_corrected", "fr_citation", "year", "lag_days"},
			rows: make([][]any, 0, len(in.Corpus.Corrections)),
		},
		{
			name: "snapshot_agency_metrics",
			columns: []string{"snapshot_id", "agency_slug", "word_count_estimate", "cfr_reference_count", "total_corrections",
				"rvi", "avg_correction_lag_days", "years_with_corrections", "first_correction_year", "last_correction_year"},
			rows: make([][]any, 0, len(in.Metrics.Metrics)),
		},
		{
			name: "snapshot_scorecards",
			columns: []string{"snapshot_id", "agency_slug", "corrections_rank", "rvi_rank", "size_rank", "responsiveness_rank",
				"composite_score", "activity_grade"},
			rows: make([][]any, 0, len(in.Scorecards)),
		},
		{
			name:    "snapshot_trends_yearly",
			columns: []string{"snapshot_id", "year", "correction_count", "unique_titles", "avg_lag_days", "min_lag_days", "max_lag_days"},
		},
		{
			name:    "snapshot_trends_by_title",
			columns: []string{"snapshot_id", "title", "correction_count", "years_active", "first_year", "last_year", "avg_lag_days"},
		},
		{
			name:    "snapshot_time_series",
			columns: []string{"snapshot_id", "year", "month", "correction_count", "avg_lag_days"},
		},
	}

	for _, a := range in.Corpus.Agencies {
		tables[0].rows = append(tables[0].rows, []any{
			id, a.Slug, a.Name, nullable(a.ShortName), nullable(a.ParentSlug), a.TotalCFRReferences, a.ChildCount,
		})
	}
	for _, r := range in.Corpus.CfrReferences {
		tables[1].rows = append(tables[1].rows, []any{
			id, r.AgencySlug, r.Title, r.Chapter, r.Subchapter, r.Part, r.Section,
		})
	}
	for _, c := range in.Corpus.Corrections {
		tables[2].rows = append(tables[2].rows, []any{
			id, c.ECFRID, c.AgencySlug, nullable(c.CFRReference), c.Title, c.Chapter, c.Part, c.Section,
			nullable(c.CorrectiveAction), c.ErrorOccurred, c.ErrorCorrected, nullable(c.FRCitation), c.Year, c.LagDays,
		})
	}
	for _, m := range in.Metrics.Metrics {
		tables[3].rows = append(tables[3].rows, []any{
			id, m.AgencySlug, m.WordCountEstimate, m.CfrReferenceCount, m.TotalCorrections,
			m.RVI, m.AvgCorrectionLagDays, m.YearsWithCorrections, m.FirstCorrectionYear, m.LastCorrectionYear,
		})
	}
	for _, s := range in.Scorecards {
		tables[4].rows = append(tables[4].rows, []any{
			id, s.AgencySlug, s.CorrectionsRank, s.RVIRank, s.SizeRank, s.ResponsivenessRank,
			s.CompositeScore, string(s.ActivityGrade),
		})
	}
	for _, y := range in.Metrics.Trends.Yearly {
		tables[5].rows = append(tables[5].rows, []any{
			id, y.Year, y.CorrectionCount, y.UniqueTitles, y.AvgLagDays, y.MinLagDays, y.MaxLagDays,
		})
	}
	for _, t := range in.Metrics.Trends.ByTitle {
		tables[6].rows = append(tables[6].rows, []any{
			id, t.Title, t.CorrectionCount, t.YearsActive, t.FirstYear, t.LastYear, t.AvgLagDays,
		})
	}
	for _, p := range in.Metrics.Trends.Monthly {
		tables[7].rows = append(tables[7].rows, []any{
			id, p.Year, p.Month, p.CorrectionCount, p.AvgLagDays,
		})
	}

	return tables
}

// nullable maps the empty string to SQL NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
