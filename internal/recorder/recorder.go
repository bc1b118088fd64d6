package recorder

import (
	"time"

	"github.com/guregu/null/v6"
)

// Snapshot is the latest indicator state of one watchlist symbol after a refresh.
// Indicator fields are null when the series was too short.
type Snapshot struct {
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Symbol    string     `json:"symbol"`
	AsOf      time.Time  `json:"as_of"`
	Window    int        `json:"window"`
	Bars      int        `json:"bars"`
	Close     null.Float `json:"close"`
	SMA       null.Float `json:"sma"`
	EMA       null.Float `json:"ema"`
	STD       null.Float `json:"std"`
	UpperBand null.Float `json:"upper_band"`
	LowerBand null.Float `json:"lower_band"`
	RSI       null.Float `json:"rsi"`
	CumReturn null.Float `json:"cum_return"`
}

// RefreshRun records one watchlist refresh attempt.
type RefreshRun struct {
	Symbols  []string
	Start    time.Time
	End      time.Time
	Status   string // "OK" or "FAILED"
	Duration time.Duration
	Note     string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordSnapshot(snap *Snapshot) error
	RecordRun(run *RefreshRun) error
	// Snapshots returns the most recent snapshots for symbol, newest first.
	Snapshots(symbol string, limit int) ([]Snapshot, error)
	Close() error
}
