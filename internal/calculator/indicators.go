package calculator

import (
	"errors"

	"MarketLens/internal/model"
)

// DefaultWindow is the moving-average and band window used when none is given.
const DefaultWindow = 20

// Warmup is the number of leading bars dropped from the indicator output for a window.
func Warmup(window int) int {
	return max(window, RSIPeriod)
}

// Compute derives SMA, EMA, sample STD, Bollinger Bands and RSI from a series' closes.
// Only dates where every indicator is defined are emitted, so the first Warmup(window)
// bars never appear. A series too short for that yields an empty result, not an error.
func Compute(s *model.Series, window int) (*model.IndicatorSeries, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	out := &model.IndicatorSeries{Window: window}
	if s == nil {
		return out, nil
	}
	out.Symbol = s.Symbol

	closes := s.Closes()
	sma := RollingSMA(closes, window)
	ema := RollingEMA(closes, window)
	std := RollingStd(closes, window)
	rsi := RollingRSI(closes, RSIPeriod)

	for i := Warmup(window); i < len(closes); i++ {
		if !sma[i].Valid || !std[i].Valid || !rsi[i].Valid {
			continue
		}
		m, sd := sma[i].Float64, std[i].Float64
		out.Points = append(out.Points, model.IndicatorPoint{
			Date:      s.Bars[i].Date,
			SMA:       m,
			EMA:       ema[i],
			STD:       sd,
			UpperBand: m + 2*sd,
			LowerBand: m - 2*sd,
			RSI:       rsi[i].Float64,
		})
	}
	return out, nil
}
