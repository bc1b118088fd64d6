package recorder

import (
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/collector"
)

// SnapshotsFromReport takes the newest indicator point and cumulative return of every
// symbol in rep.
func SnapshotsFromReport(rep *collector.Report, at time.Time) []Snapshot {
	out := make([]Snapshot, 0, len(rep.Symbols))
	for _, sym := range rep.Symbols {
		snap := Snapshot{Timestamp: at, Symbol: sym, AsOf: rep.End, Window: rep.Window}
		if s := rep.Series[sym]; s.Len() > 0 {
			last := s.Bars[s.Len()-1]
			snap.Bars = s.Len()
			snap.AsOf = last.Date
			snap.Close = null.FloatFrom(last.Close)
		}
		if p, ok := rep.Indicators[sym].Last(); ok {
			snap.SMA = null.FloatFrom(p.SMA)
			snap.EMA = null.FloatFrom(p.EMA)
			snap.STD = null.FloatFrom(p.STD)
			snap.UpperBand = null.FloatFrom(p.UpperBand)
			snap.LowerBand = null.FloatFrom(p.LowerBand)
			snap.RSI = null.FloatFrom(p.RSI)
		}
		if rep.Returns != nil {
			vals := rep.Returns.Series[sym]
			for i := len(vals) - 1; i >= 0; i-- {
				if vals[i].Valid {
					snap.CumReturn = vals[i]
					break
				}
			}
		}
		out = append(out, snap)
	}
	return out
}
