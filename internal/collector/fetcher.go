package collector

import (
	"context"
	"time"

	"MarketLens/internal/model"
)

// Fetcher retrieves raw daily OHLCV data for a set of symbols over [start, end].
// A single symbol may come back as a flat frame, several as a frame grouped by ticker.
// Fetchers do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time) (*model.Frame, error)
	Name() string
}
