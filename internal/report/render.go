package report

import (
	"fmt"
	"io"
)

const (
	doubleRule = "═══════════════════════════════════════════════════════════"
	singleRule = "───────────────────────────────────────────────────────────"
)

// Render prints the summary as a plain-text report
func Render(w io.Writer, s *Summary) error {
	p := &printer{w: w}

	p.line("")
	p.line(doubleRule)
	p.line("  eCFR Regulatory Scorecard")
	p.line(singleRule)
	p.printf("  Snapshot       : %s\n", s.SnapshotID)
	p.printf("  Agencies       : %d (%d top-level, %d ranked)\n",
		s.Overview.Agencies, s.Overview.TopLevelAgencies, s.Overview.RankedAgencies)
	p.printf("  CFR references : %d\n", s.Overview.CfrReferences)
	p.printf("  Corrections    : %d\n", s.Overview.Corrections)
	if s.Overview.FirstYear != nil && s.Overview.LastYear != nil {
		p.printf("  Year range     : %d - %d\n", *s.Overview.FirstYear, *s.Overview.LastYear)
	}

	p.section("Top agencies by corrections")
	for i, a := range s.TopByCorrections {
		p.printf("  %2d. %-50s %6d corrections  [%s]\n", i+1, display(a), a.TotalCorrections, grade(a))
	}

	p.section("Top agencies by RVI (corrections per 100k estimated words)")
	for i, a := range s.TopByRVI {
		p.printf("  %2d. %-50s RVI %8s  (%d corrections / %d refs)\n",
			i+1, display(a), formatFloat(a.RVI, 2), a.TotalCorrections, a.CfrReferenceCount)
	}

	p.section("Recent yearly trends")
	for _, y := range s.RecentYears {
		p.printf("  %d: %5d corrections  avg lag %s days\n", y.Year, y.CorrectionCount, formatFloat(y.AvgLagDays, 1))
	}

	p.section("Top titles")
	for _, t := range s.TopTitles {
		p.printf("  Title %2d: %5d corrections  %d-%d  avg lag %s days\n",
			t.Title, t.CorrectionCount, t.FirstYear, t.LastYear, formatFloat(t.AvgLagDays, 1))
	}

	p.line(doubleRule)
	return p.err
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) section(title string) {
	p.line("")
	p.printf("--- %s ---\n", title)
}

func display(a AgencyLine) string {
	name := a.Name
	if name == "" {
		name = a.Slug
	}
	if len(name) > 50 {
		name = name[:47] + "..."
	}
	return name
}

func grade(a AgencyLine) string {
	if a.Grade == "" {
		return "-"
	}
	return string(a.Grade)
}

func formatFloat(v *float64, precision int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", precision, *v)
}
