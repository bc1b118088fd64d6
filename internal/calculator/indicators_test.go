package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLens/internal/model"
)

// fixture25 is a hand-checked 25-day close series.
var fixture25 = []float64{
	101.2, 102.5, 101.8, 103.4, 104.1, 103.7, 105.2, 106.0, 105.5, 107.3,
	108.1, 107.6, 109.0, 110.4, 109.8, 111.2, 112.5, 111.9, 113.3, 114.0,
	113.2, 115.1, 116.4, 115.8, 117.2,
}

func seriesFromCloses(symbol string, closes []float64) *model.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &model.Series{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, model.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   math.Max(c-1, 0),
			Close: c,
		})
	}
	return s
}

func TestRollingSMA_HandComputedWindow(t *testing.T) {
	sma := RollingSMA(fixture25, 20)
	require.Len(t, sma, 25)

	for i := 0; i < 19; i++ {
		assert.False(t, sma[i].Valid, "index %d should be absent", i)
	}
	// (101.2 + ... + 114.0) / 20
	assert.InDelta(t, 107.425, sma[19].Float64, 1e-9)
	// (103.7 + ... + 117.2) / 20
	assert.InDelta(t, 110.66, sma[24].Float64, 1e-9)

	for i := 19; i < 25; i++ {
		want, err := CalculateSMA(fixture25[i-19:i+1], 20)
		require.NoError(t, err)
		assert.InDelta(t, want, sma[i].Float64, 1e-9)
	}
}

func TestCalculateSMA_Errors(t *testing.T) {
	_, err := CalculateSMA([]float64{1, 2}, 0)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1, 2}, 3)
	assert.Error(t, err)
}

func TestRollingEMA_DefinedFromFirstBar(t *testing.T) {
	ema := RollingEMA(fixture25, 20)
	require.Len(t, ema, 25)
	assert.Equal(t, fixture25[0], ema[0])

	alpha := 2.0 / 21.0
	assert.InDelta(t, alpha*fixture25[1]+(1-alpha)*fixture25[0], ema[1], 1e-12)
	assert.InDelta(t, 111.27953104446092, ema[24], 1e-9)
}

func TestRollingStd_SampleDeviation(t *testing.T) {
	std := RollingStd(fixture25, 20)
	assert.False(t, std[18].Valid)
	require.True(t, std[24].Valid)
	assert.InDelta(t, 4.0328127836, std[24].Float64, 1e-9)

	// 2,4,4,4,5,5,7,9 has sample variance 32/7
	std = RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	assert.InDelta(t, math.Sqrt(32.0/7.0), std[7].Float64, 1e-12)

	for _, v := range RollingStd(fixture25, 1) {
		assert.False(t, v.Valid)
	}
}

func TestRollingRSI(t *testing.T) {
	t.Run("hand computed", func(t *testing.T) {
		rsi := RollingRSI(fixture25, RSIPeriod)
		for i := 0; i < RSIPeriod; i++ {
			assert.False(t, rsi[i].Valid, "index %d should be absent", i)
		}
		assert.InDelta(t, 79.73856209150324, rsi[24].Float64, 1e-9)
	})

	t.Run("all gains saturate to 100", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 50 + float64(i)
		}
		for _, v := range RollingRSI(closes, RSIPeriod)[RSIPeriod:] {
			assert.Equal(t, 100.0, v.Float64)
		}
	})

	t.Run("all losses go to 0", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 - float64(i)
		}
		for _, v := range RollingRSI(closes, RSIPeriod)[RSIPeriod:] {
			assert.Equal(t, 0.0, v.Float64)
		}
	})

	t.Run("flat prices do not divide by zero", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = 42
		}
		rsi := RollingRSI(closes, RSIPeriod)
		require.True(t, rsi[19].Valid)
		assert.Equal(t, 100.0, rsi[19].Float64)
	})

	t.Run("bounded", func(t *testing.T) {
		closes := make([]float64, 200)
		for i := range closes {
			closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
		}
		for _, v := range RollingRSI(closes, RSIPeriod) {
			if v.Valid {
				assert.GreaterOrEqual(t, v.Float64, 0.0)
				assert.LessOrEqual(t, v.Float64, 100.0)
			}
		}
	})
}

func TestCompute_OutputAlignment(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	s := seriesFromCloses("AAPL", closes)

	tests := []struct {
		window int
		want   int
	}{
		{20, 40},
		{14, 46},
		{10, 46},
		{30, 30},
	}
	for _, tt := range tests {
		out, err := Compute(s, tt.window)
		require.NoError(t, err)
		assert.Equal(t, "AAPL", out.Symbol)
		assert.Len(t, out.Points, tt.want, "window %d", tt.window)
		assert.Equal(t, s.Bars[Warmup(tt.window)].Date, out.Points[0].Date, "window %d", tt.window)
		assert.Equal(t, s.Bars[len(s.Bars)-1].Date, out.Points[len(out.Points)-1].Date)
	}
}

func TestCompute_PointsMatchRollingSeries(t *testing.T) {
	s := seriesFromCloses("MSFT", fixture25)
	out, err := Compute(s, DefaultWindow)
	require.NoError(t, err)
	require.Len(t, out.Points, 5)

	last, ok := out.Last()
	require.True(t, ok)
	assert.Equal(t, s.Bars[24].Date, last.Date)
	assert.InDelta(t, 110.66, last.SMA, 1e-9)
	assert.InDelta(t, 111.27953104446092, last.EMA, 1e-9)
	assert.InDelta(t, 4.0328127836, last.STD, 1e-9)
	assert.InDelta(t, last.SMA+2*last.STD, last.UpperBand, 1e-12)
	assert.InDelta(t, last.SMA-2*last.STD, last.LowerBand, 1e-12)
	assert.InDelta(t, 79.73856209150324, last.RSI, 1e-9)
}

func TestCompute_InsufficientData(t *testing.T) {
	out, err := Compute(seriesFromCloses("X", fixture25[:14]), 10)
	require.NoError(t, err)
	assert.True(t, out.Empty())

	out, err = Compute(seriesFromCloses("X", fixture25[:20]), 20)
	require.NoError(t, err)
	assert.True(t, out.Empty())

	out, err = Compute(nil, 20)
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestCompute_InvalidWindow(t *testing.T) {
	_, err := Compute(seriesFromCloses("X", fixture25), 0)
	assert.Error(t, err)
}

func TestCompute_Deterministic(t *testing.T) {
	s := seriesFromCloses("X", fixture25)
	a, err := Compute(s, 15)
	require.NoError(t, err)
	b, err := Compute(s, 15)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
