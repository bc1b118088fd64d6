package calculator

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

// CumulativeReturns compounds close-to-close percent changes from the first bar.
// A period whose prior close is not positive counts as a zero return and is tallied in Anomalies.
func CumulativeReturns(s *model.Series) *model.ReturnSeries {
	out := &model.ReturnSeries{}
	if s == nil || len(s.Bars) == 0 {
		return out
	}
	out.Symbol = s.Symbol
	out.Points = make([]model.ReturnPoint, len(s.Bars))
	out.Points[0] = model.ReturnPoint{Date: s.Bars[0].Date}

	cum := 0.0
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Close
		r := 0.0
		if prev > 0 {
			r = (s.Bars[i].Close - prev) / prev
		} else {
			out.Anomalies++
		}
		cum = (1+r)*(1+cum) - 1
		out.Points[i] = model.ReturnPoint{Date: s.Bars[i].Date, Value: cum}
	}
	return out
}

// RelativeReturns computes each asset's cumulative returns and aligns them on the union of dates.
func RelativeReturns(stores map[string]*model.Series) *model.AlignedReturns {
	perAsset := make(map[string]*model.ReturnSeries, len(stores))
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for sym, s := range stores {
		rs := CumulativeReturns(s)
		perAsset[sym] = rs
		for _, p := range rs.Points {
			if !seen[p.Date] {
				seen[p.Date] = true
				dates = append(dates, p.Date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	pos := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}

	out := &model.AlignedReturns{Dates: dates, Series: make(map[string][]null.Float, len(perAsset))}
	for sym, rs := range perAsset {
		vals := make([]null.Float, len(dates))
		for _, p := range rs.Points {
			vals[pos[p.Date]] = null.FloatFrom(p.Value)
		}
		out.Series[sym] = vals
	}
	return out
}
