package report

import (
	"sort"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
	"github.com/wonny/ecfr-scorecard/internal/scoringconfig"
)

// Summary is the overview of one published snapshot
type Summary struct {
	SnapshotID       string                  `json:"snapshot_id"`
	Overview         Overview                `json:"overview"`
	TopByCorrections []AgencyLine            `json:"top_agencies_by_corrections"`
	TopByRVI         []AgencyLine            `json:"top_agencies_by_rvi"`
	RecentYears      []contracts.YearlyTrend `json:"yearly_trends"`
	TopTitles        []contracts.TitleTrend  `json:"top_titles"`
}

// Overview holds corpus-wide counts
type Overview struct {
	Agencies         int  `json:"total_agencies"`
	TopLevelAgencies int  `json:"top_level_agencies"`
	CfrReferences    int  `json:"total_cfr_references"`
	Corrections      int  `json:"total_corrections"`
	RankedAgencies   int  `json:"ranked_agencies"`
	FirstYear        *int `json:"first_year"`
	LastYear         *int `json:"last_year"`
}

// AgencyLine is one agency row of a top-N list
type AgencyLine struct {
	Slug              string          `json:"slug"`
	Name              string          `json:"name"`
	ShortName         string          `json:"short_name,omitempty"`
	TotalCorrections  int             `json:"total_corrections"`
	CfrReferenceCount int             `json:"cfr_reference_count"`
	RVI               *float64        `json:"rvi"`
	Grade             contracts.Grade `json:"activity_grade,omitempty"`
}

// Input is everything a summary is built from
type Input struct {
	Snapshot   *contracts.Snapshot
	Agencies   []contracts.Agency
	Metrics    []contracts.AgencyMetric
	Scorecards []contracts.Scorecard
	Trends     *contracts.Trends
}

// Build assembles the summary. Top lists only include agencies with corrections.
func Build(in Input, cfg scoringconfig.Report) *Summary {
	s := &Summary{}
	if in.Snapshot != nil {
		s.SnapshotID = in.Snapshot.ID
	}

	names := make(map[string]contracts.Agency, len(in.Agencies))
	for _, a := range in.Agencies {
		names[a.Slug] = a
		if a.IsTopLevel() {
			s.Overview.TopLevelAgencies++
		}
	}
	grades := make(map[string]contracts.Grade, len(in.Scorecards))
	for _, c := range in.Scorecards {
		grades[c.AgencySlug] = c.ActivityGrade
	}

	s.Overview.Agencies = len(in.Agencies)
	s.Overview.RankedAgencies = len(in.Scorecards)

	lines := make([]AgencyLine, 0, len(in.Metrics))
	for _, m := range in.Metrics {
		s.Overview.CfrReferences += m.CfrReferenceCount
		s.Overview.Corrections += m.TotalCorrections
		if m.TotalCorrections == 0 {
			continue
		}
		a := names[m.AgencySlug]
		lines = append(lines, AgencyLine{
			Slug:              m.AgencySlug,
			Name:              a.Name,
			ShortName:         a.ShortName,
			TotalCorrections:  m.TotalCorrections,
			CfrReferenceCount: m.CfrReferenceCount,
			RVI:               m.RVI,
			Grade:             grades[m.AgencySlug],
		})
	}

	s.TopByCorrections = topN(lines, cfg.TopAgencies, func(a, b AgencyLine) bool {
		return a.TotalCorrections > b.TotalCorrections
	})
	s.TopByRVI = topN(lines, cfg.TopAgencies, func(a, b AgencyLine) bool {
		switch {
		case a.RVI == nil:
			return false
		case b.RVI == nil:
			return true
		default:
			return *a.RVI > *b.RVI
		}
	})

	if in.Trends != nil {
		yearly := in.Trends.Yearly
		if n := len(yearly); n > 0 {
			first, last := yearly[0].Year, yearly[n-1].Year
			s.Overview.FirstYear, s.Overview.LastYear = &first, &last
		}
		if cfg.RecentYears > 0 && len(yearly) > cfg.RecentYears {
			yearly = yearly[len(yearly)-cfg.RecentYears:]
		}
		s.RecentYears = yearly

		titles := append([]contracts.TitleTrend(nil), in.Trends.ByTitle...)
		sort.SliceStable(titles, func(i, j int) bool {
			if titles[i].CorrectionCount != titles[j].CorrectionCount {
				return titles[i].CorrectionCount > titles[j].CorrectionCount
			}
			return titles[i].Title < titles[j].Title
		})
		if cfg.TopTitles > 0 && len(titles) > cfg.TopTitles {
			titles = titles[:cfg.TopTitles]
		}
		s.TopTitles = titles
	}

	return s
}

// topN sorts a copy by less, ties by slug, and keeps the first n (n <= 0 keeps all)
func topN(lines []AgencyLine, n int, less func(a, b AgencyLine) bool) []AgencyLine {
	out := append([]AgencyLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].Slug < out[j].Slug
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
