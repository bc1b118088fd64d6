package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"MarketLens/internal/calculator"
	"MarketLens/internal/model"
)

// SeriesSource serves assembled series for a request, typically the fetch cache.
type SeriesSource interface {
	GetOrFetch(ctx context.Context, symbols []string, start, end time.Time) (map[string]*model.Series, error)
}

// Report bundles everything derived for one request.
type Report struct {
	Symbols    []string                          `json:"symbols"`
	Start      time.Time                         `json:"start"`
	End        time.Time                         `json:"end"`
	Window     int                               `json:"window"`
	Series     map[string]*model.Series          `json:"-"`
	Indicators map[string]*model.IndicatorSeries `json:"indicators"`
	Returns    *model.AlignedReturns             `json:"returns"`
	// Notes lists per-asset conditions such as insufficient data.
	Notes []string `json:"notes,omitempty"`
}

// Collector orchestrates series retrieval and indicator computation.
type Collector struct {
	Source SeriesSource
	Window int
}

// NewCollector creates a new Collector. A non-positive window falls back to the default.
func NewCollector(source SeriesSource, window int) *Collector {
	if window <= 0 {
		window = calculator.DefaultWindow
	}
	return &Collector{Source: source, Window: window}
}

// Collect fetches (or reuses) series for the request and computes indicators and returns.
// window overrides the collector's default when positive.
func (c *Collector) Collect(ctx context.Context, symbols []string, start, end time.Time, window int) (*Report, error) {
	if window <= 0 {
		window = c.Window
	}
	req, err := model.NewRequest(symbols, start, end)
	if err != nil {
		return nil, err
	}
	series, err := c.Source.GetOrFetch(ctx, req.Symbols, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Symbols:    req.Symbols,
		Start:      req.Start,
		End:        req.End,
		Window:     window,
		Series:     series,
		Indicators: make(map[string]*model.IndicatorSeries, len(series)),
	}
	for _, sym := range req.Symbols {
		s := series[sym]
		ind, err := calculator.Compute(s, window)
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", sym, err)
		}
		if ind.Empty() {
			note := fmt.Sprintf("%s: %v (%d bars, need %d)", sym, model.ErrInsufficientData, s.Len(), calculator.Warmup(window)+1)
			log.Printf("[WARN] %s", note)
			rep.Notes = append(rep.Notes, note)
		}
		rep.Indicators[sym] = ind
	}
	rep.Returns = calculator.RelativeReturns(series)
	for _, sym := range req.Symbols {
		if rs := calculator.CumulativeReturns(series[sym]); rs.Anomalies > 0 {
			note := fmt.Sprintf("%s: %v (%d non-positive prior closes treated as zero return)", sym, model.ErrDataAnomaly, rs.Anomalies)
			log.Printf("[WARN] %s", note)
			rep.Notes = append(rep.Notes, note)
		}
	}
	return rep, nil
}
