package presenter

import (
	"github.com/shopspring/decimal"

	"MarketLens/internal/model"
)

// IndicatorRows renders the last tail indicator points as table rows, newest last.
func IndicatorRows(ind *model.IndicatorSeries, tail int) ([]string, [][]string) {
	headers := []string{"Date", "SMA", "EMA", "STD", "Upper", "Lower", "RSI"}
	if ind == nil {
		return headers, nil
	}
	pts := ind.Points
	if tail > 0 && len(pts) > tail {
		pts = pts[len(pts)-tail:]
	}
	rows := make([][]string, 0, len(pts))
	for _, p := range pts {
		rows = append(rows, []string{
			p.Date.Format(model.DateLayout),
			fixed(p.SMA, 2),
			fixed(p.EMA, 2),
			fixed(p.STD, 2),
			fixed(p.UpperBand, 2),
			fixed(p.LowerBand, 2),
			fixed(p.RSI, 1),
		})
	}
	return headers, rows
}

// ReturnRows renders the last tail aligned returns as percentages. Holes print as "-".
func ReturnRows(r *model.AlignedReturns, symbols []string, tail int) ([]string, [][]string) {
	headers := append([]string{"Date"}, symbols...)
	if r == nil {
		return headers, nil
	}
	from := 0
	if tail > 0 && len(r.Dates) > tail {
		from = len(r.Dates) - tail
	}
	rows := make([][]string, 0, len(r.Dates)-from)
	for i := from; i < len(r.Dates); i++ {
		row := []string{r.Dates[i].Format(model.DateLayout)}
		for _, sym := range symbols {
			vals := r.Series[sym]
			if i >= len(vals) || !vals[i].Valid {
				row = append(row, "-")
				continue
			}
			row = append(row, Percent(vals[i].Float64))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// Percent formats a fractional return as a signed percentage.
func Percent(v float64) string {
	d := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
