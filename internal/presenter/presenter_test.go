package presenter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLens/internal/model"
)

var d0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestCandles(t *testing.T) {
	s := &model.Series{Symbol: "AAPL", Bars: []model.Bar{
		{Date: d0, Open: 1.123456, High: 2, Low: 1, Close: 1.5, Volume: null.IntFrom(10)},
		{Date: d0.AddDate(0, 0, 1), Open: 1.5, High: 1.6, Low: 1.4, Close: 1.55},
	}}
	c := Candles(s)
	assert.Equal(t, "AAPL Candlestick Chart", c.Title)
	require.Len(t, c.Candles, 2)
	assert.Equal(t, "2024-05-01", c.Candles[0].Date)
	assert.Equal(t, 1.1235, c.Candles[0].Open)

	raw, err := json.Marshal(c.Candles[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"volume":null`)
}

func TestCandles_Nil(t *testing.T) {
	raw, err := json.Marshal(Candles(nil))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"candles":[]`)
}

func TestTechnical(t *testing.T) {
	ind := &model.IndicatorSeries{Symbol: "MSFT", Window: 20, Points: []model.IndicatorPoint{
		{Date: d0, SMA: 10, EMA: 10.5, STD: 1, UpperBand: 12, LowerBand: 8, RSI: 55.555},
	}}
	ch := Technical(ind)
	assert.Equal(t, "MSFT Technical Indicators", ch.Title)
	require.Len(t, ch.Lines, 4)
	names := []string{ch.Lines[0].Name, ch.Lines[1].Name, ch.Lines[2].Name, ch.Lines[3].Name}
	assert.Equal(t, []string{"SMA", "EMA", "Upper Band", "Lower Band"}, names)
	assert.Equal(t, 12.0, ch.Lines[2].Points[0].Value)
	assert.Equal(t, 55.56, ch.RSI.Points[0].Value)
	assert.Empty(t, ch.Note)

	empty := Technical(&model.IndicatorSeries{Symbol: "X", Window: 20})
	assert.Equal(t, model.ErrInsufficientData.Error(), empty.Note)
}

func TestPerformance_KeepsHoles(t *testing.T) {
	r := &model.AlignedReturns{
		Dates: []time.Time{d0, d0.AddDate(0, 0, 1)},
		Series: map[string][]null.Float{
			"A": {null.FloatFrom(0), null.FloatFrom(0.1234567)},
			"B": {null.Float{}, null.FloatFrom(0)},
		},
	}
	v := Performance(r, []string{"A", "B", "C"})
	assert.Equal(t, []string{"A", "B"}, v.Columns)
	assert.Equal(t, 0.123457, v.Values["A"][1].Float64)
	assert.False(t, v.Values["B"][0].Valid)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"B":[null,0]`)
}

func TestIndicatorRows_Tail(t *testing.T) {
	ind := &model.IndicatorSeries{Symbol: "A", Window: 20}
	for i := 0; i < 5; i++ {
		ind.Points = append(ind.Points, model.IndicatorPoint{Date: d0.AddDate(0, 0, i), SMA: float64(i), RSI: 50})
	}
	headers, rows := IndicatorRows(ind, 2)
	assert.Len(t, headers, 7)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05-05", rows[1][0])
	assert.Equal(t, "4.00", rows[1][1])
	assert.Equal(t, "50.0", rows[1][6])
}

func TestReturnRows(t *testing.T) {
	r := &model.AlignedReturns{
		Dates:  []time.Time{d0, d0.AddDate(0, 0, 1)},
		Series: map[string][]null.Float{"A": {null.FloatFrom(0), null.FloatFrom(-0.01)}, "B": {null.Float{}, null.FloatFrom(0.1)}},
	}
	headers, rows := ReturnRows(r, []string{"A", "B"}, 0)
	assert.Equal(t, []string{"Date", "A", "B"}, headers)
	assert.Equal(t, []string{"2024-05-01", "0.00%", "-"}, rows[0])
	assert.Equal(t, []string{"2024-05-02", "-1.00%", "+10.00%"}, rows[1])
}
