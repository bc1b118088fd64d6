package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

// MockFetcher returns controllable data for development and testing.
type MockFetcher struct {
	Price float64
	Frame *model.Frame // returned as-is when set
	Err   error        // returned instead of data when set
	Delay time.Duration

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times Fetch has been invoked.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*model.Frame, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Frame != nil {
		return m.Frame, nil
	}

	price := m.Price
	if price == 0 {
		price = 100
	}
	parts := make(map[string]*model.Frame, len(symbols))
	for i, sym := range symbols {
		frame := generateMockFrame(price*(1+0.1*float64(i)), start, end)
		if len(symbols) == 1 {
			return frame, nil
		}
		parts[sym] = frame
	}
	return model.GroupFrames(parts)
}

// generateMockFrame emits one weekday bar per day in [start, end] following a gentle wave.
func generateMockFrame(basePrice float64, start, end time.Time) *model.Frame {
	var index []time.Time
	var open, high, low, closes, volume []null.Float
	i := 0
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + 0.05*math.Sin(float64(i)/10) + 0.001*float64(i))
		index = append(index, d)
		open = append(open, null.FloatFrom(p*0.999))
		high = append(high, null.FloatFrom(p*1.005))
		low = append(low, null.FloatFrom(p*0.995))
		closes = append(closes, null.FloatFrom(p))
		volume = append(volume, null.FloatFrom(1000000))
		i++
	}
	frame := model.NewFrame(index)
	_ = frame.Set("", model.FieldOpen, open)
	_ = frame.Set("", model.FieldHigh, high)
	_ = frame.Set("", model.FieldLow, low)
	_ = frame.Set("", model.FieldClose, closes)
	_ = frame.Set("", model.FieldVolume, volume)
	return frame
}
