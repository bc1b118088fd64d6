package model

import "time"

// IndicatorPoint holds every derived indicator for one date.
type IndicatorPoint struct {
	Date      time.Time `json:"date"`
	SMA       float64   `json:"sma"`
	EMA       float64   `json:"ema"`
	STD       float64   `json:"std"`
	UpperBand float64   `json:"upper_band"`
	LowerBand float64   `json:"lower_band"`
	RSI       float64   `json:"rsi"`
}

// IndicatorSeries is the date-aligned indicator output for one asset.
// Dates without a full lookback for every indicator are absent.
type IndicatorSeries struct {
	Symbol string           `json:"symbol"`
	Window int              `json:"window"`
	Points []IndicatorPoint `json:"points"`
}

// Empty reports whether no date had all indicators defined.
func (s *IndicatorSeries) Empty() bool {
	return s == nil || len(s.Points) == 0
}

// Last returns the most recent point.
func (s *IndicatorSeries) Last() (IndicatorPoint, bool) {
	if s.Empty() {
		return IndicatorPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
