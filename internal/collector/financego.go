package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"MarketLens/internal/model"
)

// FinanceGoFetcher implements Fetcher with the piquette/finance-go chart client.
type FinanceGoFetcher struct{}

// NewFinanceGoFetcher creates a fetcher backed by finance-go.
func NewFinanceGoFetcher() *FinanceGoFetcher { return &FinanceGoFetcher{} }

func (f *FinanceGoFetcher) Name() string { return "financego" }

// Fetch iterates daily bars per symbol; ctx bounds every chart request.
func (f *FinanceGoFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*model.Frame, error) {
	parts := make(map[string]*model.Frame, len(symbols))
	for _, sym := range symbols {
		frame, err := f.fetchChart(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		if len(symbols) == 1 {
			return frame, nil
		}
		parts[sym] = frame
	}
	return model.GroupFrames(parts)
}

func (f *FinanceGoFetcher) fetchChart(ctx context.Context, symbol string, start, end time.Time) (*model.Frame, error) {
	from := model.Day(start)
	to := model.Day(end).AddDate(0, 0, 1)
	iter := chart.Get(&chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})

	var index []time.Time
	var open, high, low, closes, volume []null.Float
	for iter.Next() {
		bar := iter.Bar()
		index = append(index, time.Unix(int64(bar.Timestamp), 0).UTC())
		open = append(open, null.FloatFrom(bar.Open.InexactFloat64()))
		high = append(high, null.FloatFrom(bar.High.InexactFloat64()))
		low = append(low, null.FloatFrom(bar.Low.InexactFloat64()))
		closes = append(closes, null.FloatFrom(bar.Close.InexactFloat64()))
		volume = append(volume, null.FloatFrom(float64(bar.Volume)))
	}
	if err := iter.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("finance-go chart: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := model.NewFrame(index)
	for _, c := range []struct {
		field string
		vals  []null.Float
	}{
		{model.FieldOpen, open},
		{model.FieldHigh, high},
		{model.FieldLow, low},
		{model.FieldClose, closes},
		{model.FieldVolume, volume},
	} {
		if err := frame.Set("", c.field, c.vals); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
