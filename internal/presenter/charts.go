package presenter

import (
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"MarketLens/internal/model"
)

// Rounding applied to values leaving the process.
const (
	PricePlaces  int32 = 4
	ReturnPlaces int32 = 6
)

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundNull(v null.Float, places int32) null.Float {
	if !v.Valid {
		return v
	}
	return null.FloatFrom(round(v.Float64, places))
}

// Candle is one OHLC point of a candlestick chart.
type Candle struct {
	Date   string   `json:"date"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume null.Int `json:"volume"`
}

type CandleChart struct {
	Symbol  string   `json:"symbol"`
	Title   string   `json:"title"`
	Candles []Candle `json:"candles"`
}

// Candles converts a series into candlestick chart data.
func Candles(s *model.Series) *CandleChart {
	out := &CandleChart{Candles: []Candle{}}
	if s == nil {
		return out
	}
	out.Symbol = s.Symbol
	out.Title = s.Symbol + " Candlestick Chart"
	for _, b := range s.Bars {
		out.Candles = append(out.Candles, Candle{
			Date:   b.Date.Format(model.DateLayout),
			Open:   round(b.Open, PricePlaces),
			High:   round(b.High, PricePlaces),
			Low:    round(b.Low, PricePlaces),
			Close:  round(b.Close, PricePlaces),
			Volume: b.Volume,
		})
	}
	return out
}

type LinePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Line is one named trace of a chart.
type Line struct {
	Name   string      `json:"name"`
	Points []LinePoint `json:"points"`
}

type TechnicalChart struct {
	Symbol string `json:"symbol"`
	Title  string `json:"title"`
	Window int    `json:"window"`
	Lines  []Line `json:"lines"`
	RSI    Line   `json:"rsi"`
	Note   string `json:"note,omitempty"`
}

// Technical converts indicator output into SMA, EMA and band traces plus a separate RSI trace.
func Technical(ind *model.IndicatorSeries) *TechnicalChart {
	out := &TechnicalChart{Lines: []Line{}, RSI: Line{Name: "RSI", Points: []LinePoint{}}}
	if ind == nil {
		return out
	}
	out.Symbol = ind.Symbol
	out.Title = ind.Symbol + " Technical Indicators"
	out.Window = ind.Window
	if ind.Empty() {
		out.Note = model.ErrInsufficientData.Error()
	}

	traces := []struct {
		name string
		pick func(model.IndicatorPoint) float64
	}{
		{"SMA", func(p model.IndicatorPoint) float64 { return p.SMA }},
		{"EMA", func(p model.IndicatorPoint) float64 { return p.EMA }},
		{"Upper Band", func(p model.IndicatorPoint) float64 { return p.UpperBand }},
		{"Lower Band", func(p model.IndicatorPoint) float64 { return p.LowerBand }},
	}
	for _, tr := range traces {
		line := Line{Name: tr.name, Points: make([]LinePoint, 0, len(ind.Points))}
		for _, p := range ind.Points {
			line.Points = append(line.Points, LinePoint{Date: p.Date.Format(model.DateLayout), Value: round(tr.pick(p), PricePlaces)})
		}
		out.Lines = append(out.Lines, line)
	}
	for _, p := range ind.Points {
		out.RSI.Points = append(out.RSI.Points, LinePoint{Date: p.Date.Format(model.DateLayout), Value: round(p.RSI, 2)})
	}
	return out
}

// PerformanceView is the relative-returns table: one column per asset, holes as null.
type PerformanceView struct {
	Dates   []string                `json:"dates"`
	Columns []string                `json:"columns"`
	Values  map[string][]null.Float `json:"values"`
}

// Performance rounds aligned cumulative returns for display.
func Performance(r *model.AlignedReturns, symbols []string) *PerformanceView {
	out := &PerformanceView{Dates: []string{}, Columns: []string{}, Values: map[string][]null.Float{}}
	if r == nil {
		return out
	}
	for _, d := range r.Dates {
		out.Dates = append(out.Dates, d.Format(model.DateLayout))
	}
	for _, sym := range symbols {
		vals, ok := r.Series[sym]
		if !ok {
			continue
		}
		rounded := make([]null.Float, len(vals))
		for i, v := range vals {
			rounded[i] = roundNull(v, ReturnPlaces)
		}
		out.Columns = append(out.Columns, sym)
		out.Values[sym] = rounded
	}
	return out
}
