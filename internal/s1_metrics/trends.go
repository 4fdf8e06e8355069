package s1_metrics

import (
	"sort"

	"github.com/wonny/ecfr-scorecard/internal/contracts"
)

// lagStats accumulates defined lags
type lagStats struct {
	sum   int
	count int
	min   int
	max   int
}

func (l *lagStats) add(lag *int) {
	if lag == nil {
		return
	}
	if l.count == 0 || *lag < l.min {
		l.min = *lag
	}
	if l.count == 0 || *lag > l.max {
		l.max = *lag
	}
	l.sum += *lag
	l.count++
}

func (l *lagStats) avg() *float64 {
	if l.count == 0 {
		return nil
	}
	v := float64(l.sum) / float64(l.count)
	return &v
}

func (l *lagStats) bounds() (*int, *int) {
	if l.count == 0 {
		return nil, nil
	}
	lo, hi := l.min, l.max
	return &lo, &hi
}

// ComputeTrends builds the yearly, per-title and monthly correction tables.
// Every table is sorted by its key ascending.
func ComputeTrends(corrections []contracts.Correction) contracts.Trends {
	type yearAcc struct {
		count  int
		titles map[int]struct{}
		lags   lagStats
	}
	type titleAcc struct {
		count int
		years map[int]struct{}
		first int
		last  int
		lags  lagStats
	}
	type monthKey struct{ year, month int }
	type monthAcc struct {
		count int
		lags  lagStats
	}

	years := make(map[int]*yearAcc)
	titles := make(map[int]*titleAcc)
	months := make(map[monthKey]*monthAcc)

	for _, c := range corrections {
		y, ok := years[c.Year]
		if !ok {
			y = &yearAcc{titles: make(map[int]struct{})}
			years[c.Year] = y
		}
		y.count++
		y.titles[c.Title] = struct{}{}
		y.lags.add(c.LagDays)

		t, ok := titles[c.Title]
		if !ok {
			t = &titleAcc{years: make(map[int]struct{}), first: c.Year, last: c.Year}
			titles[c.Title] = t
		}
		t.count++
		t.years[c.Year] = struct{}{}
		if c.Year < t.first {
			t.first = c.Year
		}
		if c.Year > t.last {
			t.last = c.Year
		}
		t.lags.add(c.LagDays)

		d := c.EventDate()
		mk := monthKey{d.Year(), int(d.Month())}
		m, ok := months[mk]
		if !ok {
			m = &monthAcc{}
			months[mk] = m
		}
		m.count++
		m.lags.add(c.LagDays)
	}

	out := contracts.Trends{
		Yearly:  make([]contracts.YearlyTrend, 0, len(years)),
		ByTitle: make([]contracts.TitleTrend, 0, len(titles)),
		Monthly: make([]contracts.MonthlyPoint, 0, len(months)),
	}

	for year, y := range years {
		lo, hi := y.lags.bounds()
		out.Yearly = append(out.Yearly, contracts.YearlyTrend{
			Year:            year,
			CorrectionCount: y.count,
			UniqueTitles:    len(y.titles),
			AvgLagDays:      y.lags.avg(),
			MinLagDays:      lo,
			MaxLagDays:      hi,
		})
	}
	sort.Slice(out.Yearly, func(i, j int) bool { return out.Yearly[i].Year < out.Yearly[j].Year })

	for title, t := range titles {
		out.ByTitle = append(out.ByTitle, contracts.TitleTrend{
			Title:           title,
			CorrectionCount: t.count,
			YearsActive:     len(t.years),
			FirstYear:       t.first,
			LastYear:        t.last,
			AvgLagDays:      t.lags.avg(),
		})
	}
	sort.Slice(out.ByTitle, func(i, j int) bool { return out.ByTitle[i].Title < out.ByTitle[j].Title })

	for k, m := range months {
		out.Monthly = append(out.Monthly, contracts.MonthlyPoint{
			Year:            k.year,
			Month:           k.month,
			CorrectionCount: m.count,
			AvgLagDays:      m.lags.avg(),
		})
	}
	sort.Slice(out.Monthly, func(i, j int) bool {
		if out.Monthly[i].Year != out.Monthly[j].Year {
			return out.Monthly[i].Year < out.Monthly[j].Year
		}
		return out.Monthly[i].Month < out.Monthly[j].Month
	})

	return out
}
