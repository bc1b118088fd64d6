package collector

import (
	"fmt"
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

// AssembleStats counts rows discarded while building series.
type AssembleStats struct {
	Incomplete int // a required OHLC field was absent
	Anomalous  int // prices negative, non-finite or outside [low, high]
	Duplicates int // a later row replaced one with the same date
}

// Assemble splits a raw frame into one Series per requested symbol.
// Fields are looked up by name, so column order does not matter. A flat frame
// is accepted only for a single symbol. Symbols without columns yield empty series.
func Assemble(frame *model.Frame, symbols []string) (map[string]*model.Series, AssembleStats, error) {
	var stats AssembleStats
	if frame == nil {
		return nil, stats, fmt.Errorf("nil frame")
	}
	out := make(map[string]*model.Series, len(symbols))

	if !frame.Grouped() {
		if len(symbols) != 1 {
			return nil, stats, fmt.Errorf("flat frame cannot be split across %d symbols", len(symbols))
		}
		s, err := assembleOne(frame, "", symbols[0], &stats)
		if err != nil {
			return nil, stats, err
		}
		out[symbols[0]] = s
		return out, stats, nil
	}

	present := make(map[string]bool)
	for _, t := range frame.Tickers() {
		present[t] = true
	}
	for _, sym := range symbols {
		if !present[sym] {
			out[sym] = &model.Series{Symbol: sym}
			continue
		}
		s, err := assembleOne(frame, sym, sym, &stats)
		if err != nil {
			return nil, stats, err
		}
		out[sym] = s
	}
	return out, stats, nil
}

func assembleOne(frame *model.Frame, ticker, symbol string, stats *AssembleStats) (*model.Series, error) {
	cols := make(map[string][]null.Float, 4)
	for _, f := range []string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose} {
		vals, ok := frame.Column(ticker, f)
		if !ok {
			return nil, fmt.Errorf("%s: missing %s column", symbol, f)
		}
		cols[f] = vals
	}
	volume, hasVolume := frame.Column(ticker, model.FieldVolume)

	bars := make([]model.Bar, 0, len(frame.Index))
	for i, ts := range frame.Index {
		o, ok1 := present(cols[model.FieldOpen][i])
		h, ok2 := present(cols[model.FieldHigh][i])
		l, ok3 := present(cols[model.FieldLow][i])
		c, ok4 := present(cols[model.FieldClose][i])
		if !(ok1 && ok2 && ok3 && ok4) {
			stats.Incomplete++
			continue
		}
		if !validPrices(o, h, l, c) {
			stats.Anomalous++
			continue
		}
		bar := model.Bar{Date: model.Day(ts), Open: o, High: h, Low: l, Close: c}
		if hasVolume {
			if v, ok := present(volume[i]); ok && v >= 0 {
				bar.Volume = null.IntFrom(int64(v))
			}
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	dedup := bars[:0]
	for _, b := range bars {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			stats.Duplicates++
			continue
		}
		dedup = append(dedup, b)
	}
	return &model.Series{Symbol: symbol, Bars: dedup}, nil
}

func present(v null.Float) (float64, bool) {
	if !v.Valid || math.IsNaN(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}

func validPrices(o, h, l, c float64) bool {
	for _, p := range []float64{o, h, l, c} {
		if math.IsInf(p, 0) || p < 0 {
			return false
		}
	}
	return l <= o && o <= h && l <= c && c <= h
}
