package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/guregu/null/v6"

	"MarketLens/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooChartURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Prices are pointers because Yahoo reports missing sessions as null.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads each symbol's daily chart. End is inclusive.
func (f *YahooFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*model.Frame, error) {
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

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, start, end time.Time) (*model.Frame, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(model.Day(start).Unix()))
	q.Set("period2", fmt.Sprint(model.Day(end).AddDate(0, 0, 1).Unix()))
	u := f.BaseURL + url.PathEscape(f.yahooSymbol(symbol)) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	index := make([]time.Time, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		index[i] = time.Unix(ts, 0).UTC()
	}
	frame := model.NewFrame(index)
	if len(result.Indicators.Quote) == 0 {
		return frame, nil
	}
	quote := result.Indicators.Quote[0]
	cols := []struct {
		field string
		vals  []*float64
	}{
		{model.FieldOpen, quote.Open},
		{model.FieldHigh, quote.High},
		{model.FieldLow, quote.Low},
		{model.FieldClose, quote.Close},
		{model.FieldVolume, quote.Volume},
	}
	for _, c := range cols {
		if err := frame.Set("", c.field, nullable(c.vals, len(index))); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// nullable pads or truncates Yahoo's value arrays to n entries.
func nullable(vals []*float64, n int) []null.Float {
	out := make([]null.Float, n)
	for i := 0; i < n && i < len(vals); i++ {
		out[i] = null.FloatFromPtr(vals[i])
	}
	return out
}
