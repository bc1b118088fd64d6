package calculator

import "github.com/guregu/null/v6"

// RSIPeriod is fixed and independent of the moving-average window.
const RSIPeriod = 14

// RollingRSI computes RSI from simple means of gains and losses over the trailing period deltas.
// Index i uses deltas i-period+1..i, so indices below period are null.
// A window without losses saturates to 100.
func RollingRSI(closes []float64, period int) []null.Float {
	out := make([]null.Float, len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gains += change
			} else {
				losses -= change
			}
		}
		out[i] = null.FloatFrom(rsiFromAverages(gains/float64(period), losses/float64(period)))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
