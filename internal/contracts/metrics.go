package contracts

// AgencyMetric is the per-agency aggregate produced by S1.
// Nil pointer fields are undefined aggregates, never zero.
// ⭐ SSOT: S1 → S2 handoff
type AgencyMetric struct {
	AgencySlug           string   `json:"agency_slug"`
	WordCountEstimate    int64    `json:"word_count_estimate"`
	CfrReferenceCount    int      `json:"cfr_reference_count"`
	TotalCorrections     int      `json:"total_corrections"`
	RVI                  *float64 `json:"rvi"`
	AvgCorrectionLagDays *float64 `json:"avg_correction_lag_days"`
	YearsWithCorrections int      `json:"years_with_corrections"`
	FirstCorrectionYear  *int     `json:"first_correction_year"`
	LastCorrectionYear   *int     `json:"last_correction_year"`
}

// IsRankable reports whether the agency enters the scorecard population
func (m *AgencyMetric) IsRankable() bool {
	return m.TotalCorrections > 0 && m.RVI != nil
}

// YearlyTrend aggregates corrections by year
type YearlyTrend struct {
	Year            int      `json:"year"`
	CorrectionCount int      `json:"correction_count"`
	UniqueTitles    int      `json:"unique_titles"`
	AvgLagDays      *float64 `json:"avg_lag_days"`
	MinLagDays      *int     `json:"min_lag_days"`
	MaxLagDays      *int     `json:"max_lag_days"`
}

// TitleTrend aggregates corrections by CFR title
type TitleTrend struct {
	Title           int      `json:"title"`
	CorrectionCount int      `json:"correction_count"`
	YearsActive     int      `json:"years_active"`
	FirstYear       int      `json:"first_year"`
	LastYear        int      `json:"last_year"`
	AvgLagDays      *float64 `json:"avg_lag_days"`
}

// MonthlyPoint is one point of the monthly correction time series
type MonthlyPoint struct {
	Year            int      `json:"year"`
	Month           int      `json:"month"`
	CorrectionCount int      `json:"correction_count"`
	AvgLagDays      *float64 `json:"avg_lag_days"`
}

// Trends bundles every corpus-wide trend table
type Trends struct {
	Yearly  []YearlyTrend  `json:"yearly"`
	ByTitle []TitleTrend   `json:"by_title"`
	Monthly []MonthlyPoint `json:"monthly"`
}

// MetricSet is the full output of S1
type MetricSet struct {
	Metrics []AgencyMetric `json:"metrics"`
	Trends  Trends         `json:"trends"`
}
