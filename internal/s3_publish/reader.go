package s3_publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// ErrNotFound is returned for a lookup by key that has no row in the snapshot
var ErrNotFound = errors.New("not found")

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// CorrectionFilter narrows a correction listing. Zero values mean "any".
type CorrectionFilter struct {
	AgencySlug string
	Year       int
	Title      int
	Limit      int
	Offset     int
}

// Normalize clamps paging to sane bounds
func (f CorrectionFilter) Normalize() CorrectionFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// where renders the filter as a WHERE clause over snapshot_corrections
func (f CorrectionFilter) where(snapshotID string) (string, []any) {
	conds := []string{"snapshot_id = $1"}
	args := []any{snapshotID}

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AgencySlug != "" {
		add("agency_slug = $%d", f.AgencySlug)
	}
	if f.Year != 0 {
		add("year = $%d", f.Year)
	}
	if f.Title != 0 {
		add("title = $%d", f.Title)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// AgencyDetail is one agency with everything the snapshot knows about it
type AgencyDetail struct {
	Agency     contracts.Agency         `json:"agency"`
	References []contracts.CfrReference `json:"cfr_references"`
	Metric     *contracts.AgencyMetric  `json:"metric,omitempty"`
	Scorecard  *contracts.Scorecard     `json:"scorecard,omitempty"`
}

// Agencies lists every agency of a snapshot by slug
func (s *Store) Agencies(ctx context.Context, snapshotID string) ([]contracts.Agency, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slug, name, COALESCE(short_name, ''), COALESCE(parent_slug, ''), total_cfr_references, child_count
		FROM serving.snapshot_agencies
		WHERE snapshot_id = $1
		ORDER BY slug
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query agencies: %w", err)
	}

	agencies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.Agency, error) {
		var a contracts.Agency
		err := row.Scan(&a.Slug, &a.Name, &a.ShortName, &a.ParentSlug, &a.TotalCFRReferences, &a.ChildCount)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan agencies: %w", err)
	}
	return agencies, nil
}

// Agency returns one agency with its references, metric and scorecard
func (s *Store) Agency(ctx context.Context, snapshotID, slug string) (*AgencyDetail, error) {
	var detail AgencyDetail
	err := s.pool.QueryRow(ctx, `
		SELECT slug, name, COALESCE(short_name, ''), COALESCE(parent_slug, ''), total_cfr_references, child_count
		FROM serving.snapshot_agencies
		WHERE snapshot_id = $1 AND slug = $2
	`, snapshotID, slug).Scan(
		&detail.Agency.Slug, &detail.Agency.Name, &detail.Agency.ShortName,
		&detail.Agency.ParentSlug, &detail.Agency.TotalCFRReferences, &detail.Agency.ChildCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("agency %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query agency: %w", err)
	}

	refRows, err := s.pool.Query(ctx, `
		SELECT agency_slug, title, chapter, subchapter, part, section
		FROM serving.snapshot_cfr_references
		WHERE snapshot_id = $1 AND agency_slug = $2
		ORDER BY title, chapter NULLS FIRST, part NULLS FIRST, section NULLS FIRST
	`, snapshotID, slug)
	if err != nil {
		return nil, fmt.Errorf("query cfr references: %w", err)
	}
	detail.References, err = pgx.CollectRows(refRows, func(row pgx.CollectableRow) (contracts.CfrReference, error) {
		var r contracts.CfrReference
		err := row.Scan(&r.AgencySlug, &r.Title, &r.Chapter, &r.Subchapter, &r.Part, &r.Section)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cfr references: %w", err)
	}

	metrics, err := s.queryMetrics(ctx, snapshotID, slug)
	if err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		detail.Metric = &metrics[0]
	}

	cards, err := s.queryScorecards(ctx, snapshotID, slug)
	if err != nil {
		return nil, err
	}
	if len(cards) > 0 {
		detail.Scorecard = &cards[0]
	}

	return &detail, nil
}

// Corrections pages through the snapshot's corrections, newest first.
// total is the number of matching rows before paging.
func (s *Store) Corrections(ctx context.Context, snapshotID string, filter CorrectionFilter) ([]contracts.Correction, int, error) {
	filter = filter.Normalize()
	where, args := filter.where(snapshotID)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM serving.snapshot_corrections `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count corrections: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT ecfr_id, agency_slug, COALESCE(cfr_reference, ''), title, chapter, part, section,
		       COALESCE(corrective_action, ''), error_occurred, error_corrected, COALESCE(fr_citation, ''),
		       year, lag_days
		FROM serving.snapshot_corrections
		%s
		ORDER BY year DESC, error_occurred DESC, ecfr_id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query corrections: %w", err)
	}

	corrections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.Correction, error) {
		var c contracts.Correction
		err := row.Scan(&c.ECFRID, &c.AgencySlug, &c.CFRReference, &c.Title, &c.Chapter, &c.Part, &c.Section,
			&c.CorrectiveAction, &c.ErrorOccurred, &c.ErrorCorrected, &c.FRCitation, &c.Year, &c.LagDays)
		return c, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan corrections: %w", err)
	}
	return corrections, total, nil
}

// Metrics returns every agency metric of a snapshot by slug
func (s *Store) Metrics(ctx context.Context, snapshotID string) ([]contracts.AgencyMetric, error) {
	return s.queryMetrics(ctx, snapshotID, "")
}

func (s *Store) queryMetrics(ctx context.Context, snapshotID, slug string) ([]contracts.AgencyMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agency_slug, word_count_estimate, cfr_reference_count, total_corrections, rvi,
		       avg_correction_lag_days, years_with_corrections, first_correction_year, last_correction_year
		FROM serving.snapshot_agency_metrics
		WHERE snapshot_id = $1 AND ($2 = '' OR agency_slug = $2)
		ORDER BY agency_slug
	`, snapshotID, slug)
	if err != nil {
		return nil, fmt.Errorf("query agency metrics: %w", err)
	}

	metrics, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.AgencyMetric, error) {
		var m contracts.AgencyMetric
		err := row.Scan(&m.AgencySlug, &m.WordCountEstimate, &m.CfrReferenceCount, &m.TotalCorrections, &m.RVI,
			&m.AvgCorrectionLagDays, &m.YearsWithCorrections, &m.FirstCorrectionYear, &m.LastCorrectionYear)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan agency metrics: %w", err)
	}
	return metrics, nil
}

// Scorecards returns the ranked scorecard, best composite first
func (s *Store) Scorecards(ctx context.Context, snapshotID string) ([]contracts.Scorecard, error) {
	return s.queryScorecards(ctx, snapshotID, "")
}

func (s *Store) queryScorecards(ctx context.Context, snapshotID, slug string) ([]contracts.Scorecard, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agency_slug, corrections_rank, rvi_rank, size_rank, responsiveness_rank,
		       composite_score::float8, activity_grade
		FROM serving.snapshot_scorecards
		WHERE snapshot_id = $1 AND ($2 = '' OR agency_slug = $2)
		ORDER BY composite_score, agency_slug
	`, snapshotID, slug)
	if err != nil {
		return nil, fmt.Errorf("query scorecards: %w", err)
	}

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.Scorecard, error) {
		var (
			c     contracts.Scorecard
			grade string
		)
		err := row.Scan(&c.AgencySlug, &c.CorrectionsRank, &c.RVIRank, &c.SizeRank, &c.ResponsivenessRank,
			&c.CompositeScore, &grade)
		c.ActivityGrade = contracts.Grade(grade)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan scorecards: %w", err)
	}
	return cards, nil
}

// Trends returns the three trend tables of a snapshot
func (s *Store) Trends(ctx context.Context, snapshotID string) (*contracts.Trends, error) {
	trends := &contracts.Trends{}

	rows, err := s.pool.Query(ctx, `
		SELECT year, correction_count, unique_titles, avg_lag_days, min_lag_days, max_lag_days
		FROM serving.snapshot_trends_yearly
		WHERE snapshot_id = $1
		ORDER BY year
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query yearly trends: %w", err)
	}
	trends.Yearly, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.YearlyTrend, error) {
		var y contracts.YearlyTrend
		err := row.Scan(&y.Year, &y.CorrectionCount, &y.UniqueTitles, &y.AvgLagDays, &y.MinLagDays, &y.MaxLagDays)
		return y, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan yearly trends: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT title, correction_count, years_active, first_year, last_year, avg_lag_days
		FROM serving.snapshot_trends_by_title
		WHERE snapshot_id = $1
		ORDER BY title
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query title trends: %w", err)
	}
	trends.ByTitle, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.TitleTrend, error) {
		var t contracts.TitleTrend
		err := row.Scan(&t.Title, &t.CorrectionCount, &t.YearsActive, &t.FirstYear, &t.LastYear, &t.AvgLagDays)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan title trends: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT year, month, correction_count, avg_lag_days
		FROM serving.snapshot_time_series
		WHERE snapshot_id = $1
		ORDER BY year, month
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query time series: %w", err)
	}
	trends.Monthly, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.MonthlyPoint, error) {
		var p contracts.MonthlyPoint
		err := row.Scan(&p.Year, &p.Month, &p.CorrectionCount, &p.AvgLagDays)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan time series: %w", err)
	}

	return trends, nil
}
