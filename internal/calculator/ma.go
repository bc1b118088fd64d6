package calculator

import (
	"errors"
	"math"

	"github.com/guregu/null/v6"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the trailing-window mean at each index. Indices before window-1 are null.
func RollingSMA(closes []float64, window int) []null.Float {
	out := make([]null.Float, len(closes))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(closes); i++ {
		sma, _ := CalculateSMA(closes[i-window+1:i+1], window)
		out[i] = null.FloatFrom(sma)
	}
	return out
}

// RollingEMA returns the exponential moving average with alpha = 2/(window+1), seeded by closes[0].
// Every index is defined.
func RollingEMA(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 || window <= 0 {
		return out
	}
	alpha := 2.0 / float64(window+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingStd returns the sample standard deviation over the trailing window.
// Indices before window-1 are null; a window of one has no sample deviation and stays null.
func RollingStd(closes []float64, window int) []null.Float {
	out := make([]null.Float, len(closes))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(closes); i++ {
		w := closes[i-window+1 : i+1]
		mean, _ := CalculateSMA(w, window)
		ss := 0.0
		for _, c := range w {
			ss += (c - mean) * (c - mean)
		}
		out[i] = null.FloatFrom(math.Sqrt(ss / float64(window-1)))
	}
	return out
}
