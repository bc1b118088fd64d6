package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-date format used in keys, logs and the HTTP API.
const DateLayout = "2006-01-02"

// Bar is one trading-day observation for one asset.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume null.Int  `json:"volume"`
}

// Series holds one asset's bars, strictly increasing by date.
// A Series published into the cache must not be mutated.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes extracts the close prices in date order.
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Dates extracts the bar dates in order.
func (s *Series) Dates() []time.Time {
	if s == nil {
		return nil
	}
	dates := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		dates[i] = b.Date
	}
	return dates
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
