package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Raw field names as returned by market-data sources.
const (
	FieldOpen   = "Open"
	FieldHigh   = "High"
	FieldLow    = "Low"
	FieldClose  = "Close"
	FieldVolume = "Volume"
)

// Column identifies one raw column. Ticker is empty in a flat single-asset frame.
type Column struct {
	Ticker string
	Field  string
}

// Frame is raw tabular OHLCV data: a shared date index and one value slice per column.
// Single-asset sources produce flat columns; multi-asset sources group columns by (ticker, field).
type Frame struct {
	Index   []time.Time
	Columns []Column
	Values  [][]null.Float
}

// NewFrame creates an empty frame over the given index.
func NewFrame(index []time.Time) *Frame {
	return &Frame{Index: index}
}

// Set adds or replaces a column. vals must be the same length as the index.
func (f *Frame) Set(ticker, field string, vals []null.Float) error {
	if len(vals) != len(f.Index) {
		return fmt.Errorf("column %s/%s has %d values, index has %d", ticker, field, len(vals), len(f.Index))
	}
	for i, c := range f.Columns {
		if c.Ticker == ticker && strings.EqualFold(c.Field, field) {
			f.Values[i] = vals
			return nil
		}
	}
	f.Columns = append(f.Columns, Column{Ticker: ticker, Field: field})
	f.Values = append(f.Values, vals)
	return nil
}

// Column looks a column up by ticker and case-insensitive field name.
func (f *Frame) Column(ticker, field string) ([]null.Float, bool) {
	for i, c := range f.Columns {
		if c.Ticker == ticker && strings.EqualFold(c.Field, field) {
			return f.Values[i], true
		}
	}
	return nil, false
}

// Grouped reports whether columns carry a ticker level.
func (f *Frame) Grouped() bool {
	for _, c := range f.Columns {
		if c.Ticker != "" {
			return true
		}
	}
	return false
}

// Tickers lists the distinct tickers of a grouped frame, sorted.
func (f *Frame) Tickers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range f.Columns {
		if c.Ticker != "" && !seen[c.Ticker] {
			seen[c.Ticker] = true
			out = append(out, c.Ticker)
		}
	}
	sort.Strings(out)
	return out
}

// GroupFrames merges flat per-ticker frames into one grouped frame on the union of their dates.
// Dates a ticker lacks are left null.
func GroupFrames(parts map[string]*Frame) (*Frame, error) {
	seen := make(map[time.Time]bool)
	var index []time.Time
	for _, p := range parts {
		for _, t := range p.Index {
			if !seen[t] {
				seen[t] = true
				index = append(index, t)
			}
		}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[time.Time]int, len(index))
	for i, t := range index {
		pos[t] = i
	}

	tickers := make([]string, 0, len(parts))
	for t := range parts {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := NewFrame(index)
	for _, ticker := range tickers {
		p := parts[ticker]
		for ci, c := range p.Columns {
			vals := make([]null.Float, len(index))
			for ri, t := range p.Index {
				vals[pos[t]] = p.Values[ci][ri]
			}
			if err := out.Set(ticker, c.Field, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
