package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// ReturnPoint is a cumulative return on one date.
type ReturnPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ReturnSeries is one asset's cumulative return relative to its first close.
type ReturnSeries struct {
	Symbol string        `json:"symbol"`
	Points []ReturnPoint `json:"points"`
	// Anomalies counts periods whose prior close was not positive.
	Anomalies int `json:"anomalies,omitempty"`
}

// AlignedReturns places several assets' cumulative returns on a shared date axis.
// A null value is a date the asset did not trade.
type AlignedReturns struct {
	Dates  []time.Time             `json:"dates"`
	Series map[string][]null.Float `json:"series"`
}
